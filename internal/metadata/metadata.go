// Package metadata implements the metadata precomputer and the
// filter/sort/paginate stage of spec §4.10: once per surviving itinerary it
// derives totalDuration, departure/arrival epochs, stop count, airline
// codes, the origin/destination/connection list and cabin class
// percentages, then applies the query-parameter filter surface, sorts, and
// pages the result.
package metadata

import (
	"sort"
	"strings"

	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/reliabilityfilter"
)

// Precompute derives an itinerary's metadata from its ordered flights, its
// already-derived route key, the reliability table and the request's
// threshold percent. flightsByUUID must contain every UUID in flights.
func Precompute(flightUUIDs []string, flightsByUUID map[string]model.Flight, routeKey string, table model.ReliabilityTable, thresholdPercent int, pricing *model.PricingIndex) model.ItineraryMetadata {
	flights := resolve(flightUUIDs, flightsByUUID)

	origin, destination, connections := model.ParseRouteKey(routeKey)

	md := model.ItineraryMetadata{
		TotalDuration:    model.TotalDurationMinutes(flights),
		StopCount:        len(connections),
		AirlineCodes:     airlineCodes(flights),
		Origin:           origin,
		Destination:      destination,
		Connections:      connections,
		ClassPercentages: classPercentages(flights, table, thresholdPercent),
	}

	if len(flights) > 0 {
		md.DepartureTime = flights[0].DepartEpochMs
		md.ArrivalTime = flights[len(flights)-1].ArriveEpochMs
	}

	if pricing != nil {
		md.PricingIDs = pricingIDs(flights, pricing)
	}

	return md
}

func resolve(uuids []string, byUUID map[string]model.Flight) []model.Flight {
	flights := make([]model.Flight, 0, len(uuids))
	for _, u := range uuids {
		if f, ok := byUUID[u]; ok {
			flights = append(flights, f)
		}
	}
	return flights
}

// flightOnlyDuration sums flight durations alone, excluding layovers — the
// denominator §4.10's class-percentage formula uses, distinct from the
// layover-inclusive totalDuration the reliability filter divides by.
func flightOnlyDuration(flights []model.Flight) int {
	total := 0
	for _, f := range flights {
		total += f.DurationMinutes
	}
	return total
}

func airlineCodes(flights []model.Flight) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, f := range flights {
		prefix := f.AirlinePrefix()
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		codes = append(codes, prefix)
	}
	return codes
}

// classPercentages computes {y,w,j,f} per §4.10: Y is binary (100 if every
// flight has positive Y count, else 0); W/J/F are the percentage of the
// flights-only total duration covered by flights that both carry positive
// seats in that class and pass the reliability penalty test.
func classPercentages(flights []model.Flight, table model.ReliabilityTable, thresholdPercent int) model.ClassPercentages {
	if len(flights) == 0 {
		return model.ClassPercentages{}
	}

	allY := true
	for _, f := range flights {
		if !f.Seats.Positive("Y") {
			allY = false
			break
		}
	}
	y := 0.0
	if allY {
		y = 100
	}

	total := flightOnlyDuration(flights)

	return model.ClassPercentages{
		Y: y,
		W: cabinPercentage(flights, table, thresholdPercent, total, "W"),
		J: cabinPercentage(flights, table, thresholdPercent, total, "J"),
		F: cabinPercentage(flights, table, thresholdPercent, total, "F"),
	}
}

func cabinPercentage(flights []model.Flight, table model.ReliabilityTable, thresholdPercent int, totalFlightDuration int, cabin string) float64 {
	if totalFlightDuration == 0 {
		return 0
	}
	covered := 0
	for _, f := range flights {
		if !f.Seats.Positive(cabin) {
			continue
		}
		if penalizedToZero(f, table, thresholdPercent, totalFlightDuration, cabin) {
			continue
		}
		covered += f.DurationMinutes
	}
	return float64(covered) / float64(totalFlightDuration) * 100
}

// penalizedToZero applies §4.10's reliability penalty: a flight counts as
// zero for cabin iff its own duration exceeds (100-threshold)% of the
// itinerary's flights-only total duration AND it is unreliable for cabin
// under the carrier's rule.
func penalizedToZero(f model.Flight, table model.ReliabilityTable, thresholdPercent, totalFlightDuration int, cabin string) bool {
	durationShare := float64(f.DurationMinutes) / float64(totalFlightDuration) * 100
	if durationShare <= float64(100-thresholdPercent) {
		return false
	}
	rule := table.Lookup(f.AirlinePrefix())
	return !reliabilityfilter.IsReliableForCabin(f, rule, cabin)
}

func pricingIDs(flights []model.Flight, pricing *model.PricingIndex) []string {
	var ids []string
	for _, f := range flights {
		for _, entry := range pricing.Lookup(f.FlightNumber, f.Origin, f.Destination, f.Source) {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}

// Query is the parsed filter/sort/paginate surface of §6's query
// parameters. Nil pointer fields mean "not set".
type Query struct {
	Stops []int

	IncludeAirlines []string
	ExcludeAirlines []string

	MaxDuration *int

	MinYPercent *float64
	MinWPercent *float64
	MinJPercent *float64
	MinFPercent *float64

	DepTimeMin *int64
	DepTimeMax *int64
	ArrTimeMin *int64
	ArrTimeMax *int64

	IncludeOrigin      []string
	IncludeDestination []string
	IncludeConnection  []string
	ExcludeOrigin      []string
	ExcludeDestination []string
	ExcludeConnection  []string

	Search string

	SortBy    string // duration | departure | arrival | y | w | j | f
	SortOrder string // asc | desc

	Page     int
	PageSize int
}

// Apply runs the single-pass filter, sorts by SortBy/SortOrder with a
// totalDuration-ascending tie-break, and returns the page requested along
// with the total (post-filter, pre-pagination) count.
func Apply(itins []model.Itinerary, q Query) (page []model.Itinerary, total int) {
	filtered := make([]model.Itinerary, 0, len(itins))
	for _, it := range itins {
		if matches(it, q) {
			filtered = append(filtered, it)
		}
	}

	sortItineraries(filtered, q.SortBy, q.SortOrder)

	total = len(filtered)
	start := (q.Page - 1) * q.PageSize
	if q.Page < 1 {
		start = 0
	}
	if start >= total {
		return []model.Itinerary{}, total
	}
	end := start + q.PageSize
	if q.PageSize <= 0 || end > total {
		end = total
	}
	return filtered[start:end], total
}

func matches(it model.Itinerary, q Query) bool {
	md := it.Metadata

	if len(q.Stops) > 0 && !containsInt(q.Stops, md.StopCount) {
		return false
	}
	if len(q.IncludeAirlines) > 0 && !anyMatch(md.AirlineCodes, q.IncludeAirlines) {
		return false
	}
	if len(q.ExcludeAirlines) > 0 && anyMatch(md.AirlineCodes, q.ExcludeAirlines) {
		return false
	}
	if q.MaxDuration != nil && md.TotalDuration > *q.MaxDuration {
		return false
	}
	if q.MinYPercent != nil && md.ClassPercentages.Y < *q.MinYPercent {
		return false
	}
	if q.MinWPercent != nil && md.ClassPercentages.W < *q.MinWPercent {
		return false
	}
	if q.MinJPercent != nil && md.ClassPercentages.J < *q.MinJPercent {
		return false
	}
	if q.MinFPercent != nil && md.ClassPercentages.F < *q.MinFPercent {
		return false
	}
	if q.DepTimeMin != nil && md.DepartureTime < *q.DepTimeMin {
		return false
	}
	if q.DepTimeMax != nil && md.DepartureTime > *q.DepTimeMax {
		return false
	}
	if q.ArrTimeMin != nil && md.ArrivalTime < *q.ArrTimeMin {
		return false
	}
	if q.ArrTimeMax != nil && md.ArrivalTime > *q.ArrTimeMax {
		return false
	}
	if len(q.IncludeOrigin) > 0 && !containsStr(q.IncludeOrigin, md.Origin) {
		return false
	}
	if len(q.ExcludeOrigin) > 0 && containsStr(q.ExcludeOrigin, md.Origin) {
		return false
	}
	if len(q.IncludeDestination) > 0 && !containsStr(q.IncludeDestination, md.Destination) {
		return false
	}
	if len(q.ExcludeDestination) > 0 && containsStr(q.ExcludeDestination, md.Destination) {
		return false
	}
	if len(q.IncludeConnection) > 0 && !anyMatch(md.Connections, q.IncludeConnection) {
		return false
	}
	if len(q.ExcludeConnection) > 0 && anyMatch(md.Connections, q.ExcludeConnection) {
		return false
	}
	if q.Search != "" && !searchMatches(it, q.Search) {
		return false
	}
	return true
}

func searchMatches(it model.Itinerary, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(it.Metadata.Origin), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(it.Metadata.Destination), needle) {
		return true
	}
	for _, c := range it.Metadata.Connections {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	for _, a := range it.Metadata.AirlineCodes {
		if strings.Contains(strings.ToLower(a), needle) {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, v int) bool {
	for _, h := range haystack {
		if h == v {
			return true
		}
	}
	return false
}

func containsStr(haystack []string, v string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, v) {
			return true
		}
	}
	return false
}

func anyMatch(values, wanted []string) bool {
	for _, w := range wanted {
		if containsStr(values, w) {
			return true
		}
	}
	return false
}

// sortItineraries orders in place by sortBy/sortOrder with totalDuration
// ascending as the fixed tie-break (§4.10). Cabin percentages and arrival
// are higher-is-better; duration and departure are lower-is-better.
func sortItineraries(itins []model.Itinerary, sortBy, sortOrder string) {
	desc := sortOrder == "desc"

	less := func(i, j int) bool {
		a, b := itins[i].Metadata, itins[j].Metadata
		var av, bv float64
		higherIsBetter := false

		switch sortBy {
		case "arrival":
			av, bv = float64(a.ArrivalTime), float64(b.ArrivalTime)
			higherIsBetter = true
		case "y":
			av, bv = a.ClassPercentages.Y, b.ClassPercentages.Y
			higherIsBetter = true
		case "w":
			av, bv = a.ClassPercentages.W, b.ClassPercentages.W
			higherIsBetter = true
		case "j":
			av, bv = a.ClassPercentages.J, b.ClassPercentages.J
			higherIsBetter = true
		case "f":
			av, bv = a.ClassPercentages.F, b.ClassPercentages.F
			higherIsBetter = true
		case "departure":
			av, bv = float64(a.DepartureTime), float64(b.DepartureTime)
		default: // "duration"
			av, bv = float64(a.TotalDuration), float64(b.TotalDuration)
		}

		if av == bv {
			return a.TotalDuration < b.TotalDuration
		}

		if higherIsBetter {
			if desc {
				return av < bv
			}
			return av > bv
		}
		if desc {
			return av > bv
		}
		return av < bv
	}

	sort.SliceStable(itins, less)
}

// FacetRanges carries the client-filter-UI ranges §6's response field
// filterMetadata describes: sorted distinct values for the CSV-filterable
// dimensions, min/max for the numeric ones.
type FacetRanges struct {
	Stops     []int    `json:"stops"`
	Airlines  []string `json:"airlines"`
	Origins   []string `json:"origins"`
	Destinations []string `json:"destinations"`
	Connections []string `json:"connections"`

	MinDuration int `json:"minDuration"`
	MaxDuration int `json:"maxDuration"`

	MinDepartureTime int64 `json:"minDepartureTime"`
	MaxDepartureTime int64 `json:"maxDepartureTime"`
	MinArrivalTime   int64 `json:"minArrivalTime"`
	MaxArrivalTime   int64 `json:"maxArrivalTime"`
}

// ComputeFacets derives the facet ranges from the full, pre-filter
// itinerary set so the client's filter UI always reflects every available
// option, not just the currently filtered page.
func ComputeFacets(itins []model.Itinerary) FacetRanges {
	if len(itins) == 0 {
		return FacetRanges{}
	}

	stopSet := make(map[int]struct{})
	airlineSet := make(map[string]struct{})
	originSet := make(map[string]struct{})
	destSet := make(map[string]struct{})
	connSet := make(map[string]struct{})

	f := FacetRanges{
		MinDuration:      itins[0].Metadata.TotalDuration,
		MaxDuration:      itins[0].Metadata.TotalDuration,
		MinDepartureTime: itins[0].Metadata.DepartureTime,
		MaxDepartureTime: itins[0].Metadata.DepartureTime,
		MinArrivalTime:   itins[0].Metadata.ArrivalTime,
		MaxArrivalTime:   itins[0].Metadata.ArrivalTime,
	}

	for _, it := range itins {
		md := it.Metadata
		stopSet[md.StopCount] = struct{}{}
		originSet[md.Origin] = struct{}{}
		destSet[md.Destination] = struct{}{}
		for _, a := range md.AirlineCodes {
			airlineSet[a] = struct{}{}
		}
		for _, c := range md.Connections {
			connSet[c] = struct{}{}
		}

		if md.TotalDuration < f.MinDuration {
			f.MinDuration = md.TotalDuration
		}
		if md.TotalDuration > f.MaxDuration {
			f.MaxDuration = md.TotalDuration
		}
		if md.DepartureTime < f.MinDepartureTime {
			f.MinDepartureTime = md.DepartureTime
		}
		if md.DepartureTime > f.MaxDepartureTime {
			f.MaxDepartureTime = md.DepartureTime
		}
		if md.ArrivalTime < f.MinArrivalTime {
			f.MinArrivalTime = md.ArrivalTime
		}
		if md.ArrivalTime > f.MaxArrivalTime {
			f.MaxArrivalTime = md.ArrivalTime
		}
	}

	f.Stops = sortedInts(stopSet)
	f.Airlines = sortedStrings(airlineSet)
	f.Origins = sortedStrings(originSet)
	f.Destinations = sortedStrings(destSet)
	f.Connections = sortedStrings(connSet)

	return f
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func sortedStrings(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
