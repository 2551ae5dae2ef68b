package model

import "strings"

// CityGroup maps a city code to the set of airport codes it expands to. It
// is process-wide reference data, loaded once at startup and treated as
// read-only thereafter (§3, §9).
type CityGroup map[string][]string

// ExpandWaypoint returns the concrete airport codes a waypoint denotes: the
// waypoint itself if it is already an airport code (absent from the city
// group), or the city's member airports otherwise.
func (cg CityGroup) ExpandWaypoint(waypoint string) []string {
	if airports, ok := cg[waypoint]; ok && len(airports) > 0 {
		return airports
	}
	return []string{waypoint}
}

// CityOf returns the city code that airport belongs to, or "" if airport is
// not a member of any known city group.
func (cg CityGroup) CityOf(airport string) string {
	for city, airports := range cg {
		for _, a := range airports {
			if a == airport {
				return city
			}
		}
	}
	return ""
}

// RouteStructure is one candidate O-A-...-B-D path returned by the
// route-topology collaborator, expressed over airport or city waypoints
// (§3). Waypoints are ordered origin-to-destination; intermediate hops are
// optional.
type RouteStructure struct {
	Waypoints []string `json:"waypoints"`

	// Alliance whitelists: All1 constrains the O-A segment, All2 every
	// intermediate segment, All3 the B-D segment. A nil/empty slice means
	// "any alliance".
	All1 []string `json:"all1,omitempty"`
	All2 []string `json:"all2,omitempty"`
	All3 []string `json:"all3,omitempty"`

	// Region is true when Waypoints are subregions rather than airports;
	// the upstream enumerator has already validated them, so the route
	// pre-filter (§4.8) is skipped for these routes.
	Region bool `json:"region,omitempty"`
}

// SegmentKeys explodes the waypoint chain into the ordered (from, to)
// segment keys, pairing consecutive waypoints exactly as given: a city
// waypoint is not expanded here. City expansion happens in package
// prefilter and in the orchestrator's segment building, which iterate city
// members explicitly.
func (r RouteStructure) SegmentKeys() []SegmentKey {
	keys := make([]SegmentKey, 0, len(r.Waypoints)-1)
	for i := 0; i+1 < len(r.Waypoints); i++ {
		keys = append(keys, SegmentKey{From: r.Waypoints[i], To: r.Waypoints[i+1]})
	}
	return keys
}

// AllianceFor returns the whitelist that applies to the segment at index i
// (0-based, same indexing as SegmentKeys): the first segment uses All1, the
// last uses All3, everything in between uses All2.
func (r RouteStructure) AllianceFor(segmentIndex, segmentCount int) []string {
	switch {
	case segmentCount == 1:
		// a direct O-D route: treat as governed by All1 if present,
		// otherwise All3, otherwise unrestricted — mirrors the source
		// convention of All1 always being populated for the first hop.
		if len(r.All1) > 0 {
			return r.All1
		}
		return r.All3
	case segmentIndex == 0:
		return r.All1
	case segmentIndex == segmentCount-1:
		return r.All3
	default:
		return r.All2
	}
}

// DeriveRouteKey re-derives a composed itinerary's canonical route key from
// its actual flights (§3, §4.12): origin and destination are the first
// flight's departure and the last flight's arrival airports, never their
// city; each intermediate connection waypoint is emitted as its city code
// when the airport belongs to a city group, so a city-expanded search over
// TYO never produces "TYO-LAX" but may produce "NRT-LAX" or "HND-LAX".
func DeriveRouteKey(flights []Flight, cities CityGroup) string {
	if len(flights) == 0 {
		return ""
	}
	waypoints := make([]string, 0, len(flights)+1)
	waypoints = append(waypoints, flights[0].Origin)
	for i, f := range flights {
		if i == len(flights)-1 {
			waypoints = append(waypoints, f.Destination)
			continue
		}
		if city := cities.CityOf(f.Destination); city != "" {
			waypoints = append(waypoints, city)
		} else {
			waypoints = append(waypoints, f.Destination)
		}
	}
	return strings.Join(waypoints, "-")
}

// ParseRouteKey splits a canonical route key back into origin, destination
// and the ordered list of intermediate connection waypoints.
func ParseRouteKey(routeKey string) (origin, destination string, connections []string) {
	parts := strings.Split(routeKey, "-")
	if len(parts) == 0 {
		return "", "", nil
	}
	origin = parts[0]
	destination = parts[len(parts)-1]
	if len(parts) > 2 {
		connections = append(connections, parts[1:len(parts)-1]...)
	}
	return origin, destination, connections
}
