package model

import (
	"fmt"
	"time"
)

// GroupKey identifies a Group within the segment pool and connection
// matrices.
type GroupKey string

// Group is an (origin, destination, date, alliance, source) bucket of
// flights, carrying a timing envelope used for group-level pruning before
// any per-flight comparison is attempted (§4.7).
type Group struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Alliance    string `json:"alliance"`
	Source      string `json:"source"`

	Flights []Flight `json:"flights"`

	EarliestDeparture time.Time `json:"earliestDeparture"`
	LatestDeparture   time.Time `json:"latestDeparture"`
	EarliestArrival   time.Time `json:"earliestArrival"`
	LatestArrival     time.Time `json:"latestArrival"`

	// HasEnvelope is false until at least one flight has been folded into
	// the envelope fields above; an empty envelope connects conservatively
	// per §4.7 step 3.
	HasEnvelope bool `json:"-"`
}

// Key returns the group's identity in the connection matrices.
func (g Group) Key() GroupKey {
	return GroupKey(fmt.Sprintf("%s|%s|%s|%s|%s", g.Origin, g.Destination, g.Date, g.Alliance, g.Source))
}

// Extend folds a flight into the group's timing envelope.
func (g *Group) Extend(f Flight) {
	g.Flights = append(g.Flights, f)

	if !g.HasEnvelope {
		g.EarliestDeparture = f.DepartsAt
		g.LatestDeparture = f.DepartsAt
		g.EarliestArrival = f.ArrivesAt
		g.LatestArrival = f.ArrivesAt
		g.HasEnvelope = true
		return
	}

	if f.DepartsAt.Before(g.EarliestDeparture) {
		g.EarliestDeparture = f.DepartsAt
	}
	if f.DepartsAt.After(g.LatestDeparture) {
		g.LatestDeparture = f.DepartsAt
	}
	if f.ArrivesAt.Before(g.EarliestArrival) {
		g.EarliestArrival = f.ArrivesAt
	}
	if f.ArrivesAt.After(g.LatestArrival) {
		g.LatestArrival = f.ArrivesAt
	}
}

// SegmentKey is an ordered (from, to) airport pair identifying an entry in
// the segment pool.
type SegmentKey struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (k SegmentKey) String() string {
	return fmt.Sprintf("%s-%s", k.From, k.To)
}
