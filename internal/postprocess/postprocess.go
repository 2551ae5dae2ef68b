// Package postprocess runs the fixed-order pipeline of spec §4.12 over a
// request's composed itineraries: dedup per (route, date), drop empty route
// buckets, prune the flight map down to referenced UUIDs, apply the
// date-range filter, apply the reliability filter, then drop empty route
// buckets a second time.
package postprocess

import (
	"time"

	"github.com/hachrisjordan/award-itin-engine/internal/composer"
	"github.com/hachrisjordan/award-itin-engine/internal/metadata"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/reliabilityfilter"
)

// ComposedRoute is one candidate route's composed itineraries, keyed by
// calendar date, as produced by package composer. The route key is not
// carried here: it is re-derived from each sequence's actual flights
// during this pipeline (§4.12), since the candidate route that produced a
// sequence may use city waypoints the composed flights don't.
type ComposedRoute struct {
	ByDate map[string][][]string // date -> UUID sequences
}

// Input bundles everything the pipeline needs in one request scope.
type Input struct {
	Routes        []ComposedRoute
	FlightsByUUID map[string]model.Flight
	Cities        model.CityGroup

	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD

	ReliabilityTable model.ReliabilityTable
	ThresholdPercent int
	Pricing          *model.PricingIndex
}

// Output is the pipeline's result: the surviving itineraries and the
// flight map pruned to only the UUIDs they reference.
type Output struct {
	Itineraries []model.Itinerary
	Flights     map[string]model.Flight
}

// Run executes the fixed-order pipeline described in the package doc.
func Run(in Input) (Output, error) {
	startOfDay, endOfDay, err := dateWindow(in.StartDate, in.EndDate)
	if err != nil {
		return Output{}, err
	}

	itins := dedupAndBuild(in.Routes, in.FlightsByUUID, in.Cities)
	itins = dropEmptyRoutes(itins)

	usedFlights := pruneFlightMap(itins, in.FlightsByUUID)

	itins = filterByDateRange(itins, usedFlights, startOfDay, endOfDay)
	itins = applyReliabilityFilter(itins, usedFlights, in.ReliabilityTable, in.ThresholdPercent)
	itins = dropEmptyRoutes(itins)

	usedFlights = pruneFlightMap(itins, in.FlightsByUUID)

	for i := range itins {
		itins[i].Metadata = metadata.Precompute(itins[i].FlightUUIDs, usedFlights, itins[i].RouteKey, in.ReliabilityTable, in.ThresholdPercent, in.Pricing)
	}

	return Output{Itineraries: itins, Flights: usedFlights}, nil
}

// dedupAndBuild flattens every route's per-date UUID sequences into
// Itinerary values, re-deriving each one's route key from its actual
// flights and deduplicating by the composer's canonical key per
// (route, date) — a second dedup pass in case two ComposedRoutes produced the
// same physical itinerary under different candidate route keys.
func dedupAndBuild(routes []ComposedRoute, flightsByUUID map[string]model.Flight, cities model.CityGroup) []model.Itinerary {
	seen := make(map[string]struct{})
	var out []model.Itinerary

	for _, r := range routes {
		for date, sequences := range r.ByDate {
			for _, seq := range sequences {
				derivedKey := deriveKey(seq, flightsByUUID, cities)
				dedupKey := derivedKey + "|" + date + "|" + composer.CanonicalKey(seq)
				if _, dup := seen[dedupKey]; dup {
					continue
				}
				seen[dedupKey] = struct{}{}

				out = append(out, model.Itinerary{
					FlightUUIDs: seq,
					RouteKey:    derivedKey,
					Date:        date,
				})
			}
		}
	}
	return out
}

func deriveKey(seq []string, flightsByUUID map[string]model.Flight, cities model.CityGroup) string {
	flights := make([]model.Flight, 0, len(seq))
	for _, u := range seq {
		if f, ok := flightsByUUID[u]; ok {
			flights = append(flights, f)
		}
	}
	return model.DeriveRouteKey(flights, cities)
}

// dropEmptyRoutes removes itineraries with no flights — defensive against
// upstream producing degenerate entries; real composer output never does.
func dropEmptyRoutes(itins []model.Itinerary) []model.Itinerary {
	out := itins[:0]
	for _, it := range itins {
		if len(it.FlightUUIDs) > 0 {
			out = append(out, it)
		}
	}
	return out
}

// pruneFlightMap returns the subset of flightsByUUID referenced by at
// least one surviving itinerary.
func pruneFlightMap(itins []model.Itinerary, flightsByUUID map[string]model.Flight) map[string]model.Flight {
	used := make(map[string]model.Flight)
	for _, it := range itins {
		for _, u := range it.FlightUUIDs {
			if f, ok := flightsByUUID[u]; ok {
				used[u] = f
			}
		}
	}
	return used
}

func dateWindow(startDate, endDate string) (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = time.Parse("2006-01-02", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	return start, end, nil
}

// filterByDateRange keeps itineraries whose first flight departs within
// [startOfDay, endOfDay] (§4.12).
func filterByDateRange(itins []model.Itinerary, flights map[string]model.Flight, startOfDay, endOfDay time.Time) []model.Itinerary {
	out := itins[:0]
	for _, it := range itins {
		if len(it.FlightUUIDs) == 0 {
			continue
		}
		first, ok := flights[it.FlightUUIDs[0]]
		if !ok {
			continue
		}
		if first.DepartsAt.Before(startOfDay) || first.DepartsAt.After(endOfDay) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// applyReliabilityFilter rejects itineraries whose unreliable-flight-
// duration share exceeds (100 - threshold)% of totalDuration (§4.11),
// computing totalDuration itself here since the pipeline has the flight
// map in hand at this stage.
func applyReliabilityFilter(itins []model.Itinerary, flights map[string]model.Flight, table model.ReliabilityTable, thresholdPercent int) []model.Itinerary {
	out := itins[:0]
	for _, it := range itins {
		flightSeq := resolveFlights(it.FlightUUIDs, flights)
		total := model.TotalDurationMinutes(flightSeq)
		if reliabilityfilter.Accept(flightSeq, total, table, thresholdPercent) {
			out = append(out, it)
		}
	}
	return out
}

func resolveFlights(uuids []string, flights map[string]model.Flight) []model.Flight {
	out := make([]model.Flight, 0, len(uuids))
	for _, u := range uuids {
		if f, ok := flights[u]; ok {
			out = append(out, f)
		}
	}
	return out
}
