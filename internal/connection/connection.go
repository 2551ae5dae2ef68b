// Package connection builds the two-level connection index spec §4.7
// describes: a group-level matrix computed from timing envelopes, then a
// flight-level matrix computed only between flight pairs whose groups
// already connect. Together they turn itinerary composition from an
// O(|flights|^2) scan into near-linear lookups.
package connection

import (
	"time"

	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/uuidgen"
)

const (
	minConnectionGap = 45 * time.Minute
	maxConnectionGap = 24 * time.Hour
)

// PrecomputeFlightTimings fills in each flight's epoch-millisecond
// departure/arrival fields in one pass, so every later comparison in the
// hot loop compares integers instead of re-parsing timestamps (§9).
func PrecomputeFlightTimings(groups []model.Group) {
	for gi := range groups {
		flights := groups[gi].Flights
		for fi := range flights {
			flights[fi].DepartEpochMs = flights[fi].DepartsAt.UnixMilli()
			flights[fi].ArriveEpochMs = flights[fi].ArrivesAt.UnixMilli()
		}
	}
}

// AssignUUIDs computes and stores each flight's deterministic identity.
func AssignUUIDs(cache *uuidgen.Cache, groups []model.Group) {
	for gi := range groups {
		flights := groups[gi].Flights
		for fi := range flights {
			flights[fi].UUID = cache.Identity(flights[fi].FlightNumber, flights[fi].DepartsAt, flights[fi].ArrivesAt)
		}
	}
}

// BuildGroupMatrix implements §4.7's group-level pruning pass: group A
// connects to group B iff B originates where A terminates and their
// timing envelopes admit at least one valid gap. Groups with no envelope
// (HasEnvelope == false, i.e. empty) connect conservatively.
func BuildGroupMatrix(groups []model.Group) model.GroupMatrix {
	byOrigin := make(map[string][]model.Group)
	for _, g := range groups {
		byOrigin[g.Origin] = append(byOrigin[g.Origin], g)
	}

	matrix := model.NewGroupMatrix()
	for _, a := range groups {
		for _, b := range byOrigin[a.Destination] {
			if groupsConnect(a, b) {
				matrix.Add(a.Key(), b.Key())
			}
		}
	}
	return matrix
}

func groupsConnect(a, b model.Group) bool {
	if !a.HasEnvelope || !b.HasEnvelope {
		return true
	}
	if b.LatestDeparture.Sub(a.EarliestArrival) < minConnectionGap {
		return false
	}
	if b.EarliestDeparture.Sub(a.LatestArrival) > maxConnectionGap {
		return false
	}
	return true
}

// BuildFlightMatrix implements §4.7's flight-level validation pass: for
// every group pair already present in groupMatrix, check each of their
// flight pairs against the exact 45-minute-to-24-hour connection window.
func BuildFlightMatrix(groups []model.Group, groupMatrix model.GroupMatrix) model.FlightMatrix {
	byGroupKey := make(map[model.GroupKey]model.Group, len(groups))
	for _, g := range groups {
		byGroupKey[g.Key()] = g
	}

	matrix := model.NewFlightMatrix()
	for _, a := range groups {
		destinations, ok := groupMatrix[a.Key()]
		if !ok {
			continue
		}
		for bKey := range destinations {
			b, ok := byGroupKey[bKey]
			if !ok {
				continue
			}
			for _, f := range a.Flights {
				for _, g := range b.Flights {
					if f.UUID == g.UUID {
						continue
					}
					if flightsConnect(f, g) {
						matrix.Add(f.UUID, g.UUID)
					}
				}
			}
		}
	}
	return matrix
}

func flightsConnect(f, g model.Flight) bool {
	gap := g.DepartEpochMs - f.ArriveEpochMs
	min := minConnectionGap.Milliseconds()
	max := maxConnectionGap.Milliseconds()
	return gap >= min && gap <= max
}
