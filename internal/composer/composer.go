// Package composer implements the iterative stack-based DFS of spec §4.9:
// given one route's ordered segments, its per-segment (already
// alliance-filtered) flight pools, and the flight connection matrix, it
// produces every valid UUID sequence bucketed by departure date.
package composer

import (
	"strings"
	"time"

	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

// Segment is one hop of a route, already resolved to its flight pool and
// alliance whitelist.
type Segment struct {
	From, To string
	Flights  []model.Flight // already alliance-filtered against the applicable whitelist
}

// frame is one unit of work on the explicit DFS stack (§4.9).
type frame struct {
	segIdx       int
	pathUUIDs    []string
	usedAirports map[string]struct{}
	prevUUID     string
	hasPrev      bool
}

// Compose runs the DFS over segments and the flight matrix, returning a
// map from calendar date (YYYY-MM-DD, the first flight's local departure
// date) to the list of distinct UUID sequences found for that date.
func Compose(segments []Segment, flightMatrix model.FlightMatrix) map[string][][]string {
	results := make(map[string][][]string)
	if len(segments) == 0 {
		return results
	}

	seen := make(map[string]map[string]struct{}) // date -> canonical joined string -> seen

	stack := make([]frame, 0, len(segments[0].Flights))
	for _, f := range segments[0].Flights {
		used := map[string]struct{}{segments[0].From: {}, segments[0].To: {}}
		stack = append(stack, frame{
			segIdx:       1,
			pathUUIDs:    []string{f.UUID},
			usedAirports: used,
			prevUUID:     f.UUID,
			hasPrev:      true,
		})
	}

	// flightsByUUID lets a completed path recover the first flight's
	// DepartsAt without threading timing data through every frame.
	flightsByUUID := indexFlights(segments)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.segIdx == len(segments) {
			emit(results, seen, top.pathUUIDs, flightsByUUID)
			continue
		}

		seg := segments[top.segIdx]
		for _, g := range seg.Flights {
			if _, used := top.usedAirports[seg.To]; used {
				continue
			}
			if top.hasPrev && !flightMatrix.Connects(top.prevUUID, g.UUID) {
				continue
			}

			nextUsed := make(map[string]struct{}, len(top.usedAirports)+1)
			for k := range top.usedAirports {
				nextUsed[k] = struct{}{}
			}
			nextUsed[seg.To] = struct{}{}

			nextPath := make([]string, len(top.pathUUIDs)+1)
			copy(nextPath, top.pathUUIDs)
			nextPath[len(top.pathUUIDs)] = g.UUID

			stack = append(stack, frame{
				segIdx:       top.segIdx + 1,
				pathUUIDs:    nextPath,
				usedAirports: nextUsed,
				prevUUID:     g.UUID,
				hasPrev:      true,
			})
		}
	}

	return results
}

func indexFlights(segments []Segment) map[string]model.Flight {
	idx := make(map[string]model.Flight)
	for _, seg := range segments {
		for _, f := range seg.Flights {
			idx[f.UUID] = f
		}
	}
	return idx
}

func emit(results map[string][][]string, seen map[string]map[string]struct{}, path []string, flightsByUUID map[string]model.Flight) {
	if len(path) == 0 {
		return
	}
	first, ok := flightsByUUID[path[0]]
	if !ok {
		return
	}
	date := first.DepartsAt.Format("2006-01-02")

	canonical := strings.Join(path, "|")
	if seen[date] == nil {
		seen[date] = make(map[string]struct{})
	}
	if _, dup := seen[date][canonical]; dup {
		return
	}
	seen[date][canonical] = struct{}{}

	results[date] = append(results[date], append([]string(nil), path...))
}

// DateOf is a small helper exposed for callers that need the same date
// convention this package uses elsewhere (e.g. the orchestrator assigning
// a route key's date window).
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// CanonicalKey joins a UUID path the same way the composer's internal
// dedup does, for callers (post-processing) that need to recompute it.
func CanonicalKey(path []string) string {
	return strings.Join(path, "|")
}
