package model

// GroupMatrix maps a group key to the set of group keys it may connect to
// (§4.7, group-level pruning pass).
type GroupMatrix map[GroupKey]map[GroupKey]struct{}

// NewGroupMatrix returns an empty matrix.
func NewGroupMatrix() GroupMatrix {
	return make(GroupMatrix)
}

// Add records that from connects to to.
func (m GroupMatrix) Add(from, to GroupKey) {
	set, ok := m[from]
	if !ok {
		set = make(map[GroupKey]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// Connects reports whether from connects to to.
func (m GroupMatrix) Connects(from, to GroupKey) bool {
	set, ok := m[from]
	if !ok {
		return false
	}
	_, ok = set[to]
	return ok
}

// FlightMatrix maps a flight UUID to the set of flight UUIDs reachable by a
// valid connection (§4.7, flight-level validation pass).
type FlightMatrix map[string]map[string]struct{}

// NewFlightMatrix returns an empty matrix.
func NewFlightMatrix() FlightMatrix {
	return make(FlightMatrix)
}

// Add records that from connects to to.
func (m FlightMatrix) Add(from, to string) {
	set, ok := m[from]
	if !ok {
		set = make(map[string]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// Connects reports whether from connects to to.
func (m FlightMatrix) Connects(from, to string) bool {
	set, ok := m[from]
	if !ok {
		return false
	}
	_, ok = set[to]
	return ok
}
