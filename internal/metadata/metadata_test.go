package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

func mkFlight(uuid, num, origin, dest string, departMs, arriveMs int64, durationMin int, seats model.CabinCounts) model.Flight {
	return model.Flight{
		UUID: uuid, FlightNumber: num, Origin: origin, Destination: dest,
		DepartEpochMs: departMs, ArriveEpochMs: arriveMs, DurationMinutes: durationMin, Seats: seats,
	}
}

func TestPrecompute_TotalDurationIncludesLayovers(t *testing.T) {
	byUUID := map[string]model.Flight{
		"f1": mkFlight("f1", "CX800", "HAN", "HKG", 0, 120*60000, 120, model.CabinCounts{Y: 9}),
		"f2": mkFlight("f2", "CX801", "HKG", "LAX", 180*60000, 180*60000+900*60000, 900, model.CabinCounts{Y: 9}),
	}
	md := Precompute([]string{"f1", "f2"}, byUUID, "HAN-HKG-LAX", model.ReliabilityTable{}, 85, nil)

	// flight durations 120+900=1020, layover = 180-120=60.
	assert.Equal(t, 1020+60, md.TotalDuration)
	assert.Equal(t, "HAN", md.Origin)
	assert.Equal(t, "LAX", md.Destination)
	assert.Equal(t, []string{"HKG"}, md.Connections)
	assert.Equal(t, 1, md.StopCount)
	assert.Equal(t, []string{"CX"}, md.AirlineCodes)
}

func TestPrecompute_ClassPercentages_YBinary(t *testing.T) {
	byUUID := map[string]model.Flight{
		"f1": mkFlight("f1", "CX800", "HAN", "HKG", 0, 60*60000, 60, model.CabinCounts{Y: 9}),
		"f2": mkFlight("f2", "CX801", "HKG", "LAX", 60*60000, 120*60000, 60, model.CabinCounts{Y: 0}),
	}
	md := Precompute([]string{"f1", "f2"}, byUUID, "HAN-HKG-LAX", model.ReliabilityTable{}, 85, nil)
	assert.Equal(t, 0.0, md.ClassPercentages.Y)
}

func TestPrecompute_ClassPercentages_JCoveredShare(t *testing.T) {
	table := model.ReliabilityTable{"CX": {CarrierPrefix: "CX", MinCount: 5}}
	byUUID := map[string]model.Flight{
		// short leg, J count below min but duration share small -> not penalized, counts fully.
		"f1": mkFlight("f1", "CX800", "HAN", "HKG", 0, 60*60000, 60, model.CabinCounts{J: 1}),
		"f2": mkFlight("f2", "CX801", "HKG", "LAX", 60*60000, 60*60000+540*60000, 540, model.CabinCounts{J: 0}),
	}
	md := Precompute([]string{"f1", "f2"}, byUUID, "HAN-HKG-LAX", table, 85, nil)
	// total flight-only duration 600; covered = f1's 60 (f2 has zero J count, never covered).
	assert.InDelta(t, 10.0, md.ClassPercentages.J, 0.01)
}

func TestPrecompute_ClassPercentages_PenalizedLongLegZeroed(t *testing.T) {
	table := model.ReliabilityTable{"CX": {CarrierPrefix: "CX", MinCount: 5}}
	byUUID := map[string]model.Flight{
		// f1 is >15% of total flight duration (threshold 85 -> 15% cutoff) and below min count -> zeroed.
		"f1": mkFlight("f1", "CX800", "HAN", "HKG", 0, 200*60000, 200, model.CabinCounts{J: 1}),
		"f2": mkFlight("f2", "CX801", "HKG", "LAX", 200*60000, 200*60000+100*60000, 100, model.CabinCounts{J: 9}),
	}
	md := Precompute([]string{"f1", "f2"}, byUUID, "HAN-HKG-LAX", table, 85, nil)
	// total 300; only f2 (100) counted -> 33.3%.
	assert.InDelta(t, 33.33, md.ClassPercentages.J, 0.1)
}

func TestApply_FilterByStopsAndAirline(t *testing.T) {
	itins := []model.Itinerary{
		{RouteKey: "HAN-LAX", Metadata: model.ItineraryMetadata{StopCount: 0, AirlineCodes: []string{"CX"}, TotalDuration: 600}},
		{RouteKey: "HAN-HKG-LAX", Metadata: model.ItineraryMetadata{StopCount: 1, AirlineCodes: []string{"VN"}, TotalDuration: 700}},
	}
	out, total := Apply(itins, Query{Stops: []int{0}, PageSize: 10, Page: 1})
	require.Equal(t, 1, total)
	assert.Equal(t, "HAN-LAX", out[0].RouteKey)
}

func TestApply_SortDurationAscending(t *testing.T) {
	itins := []model.Itinerary{
		{RouteKey: "A", Metadata: model.ItineraryMetadata{TotalDuration: 900}},
		{RouteKey: "B", Metadata: model.ItineraryMetadata{TotalDuration: 300}},
	}
	out, _ := Apply(itins, Query{SortBy: "duration", SortOrder: "asc", Page: 1, PageSize: 10})
	assert.Equal(t, "B", out[0].RouteKey)
	assert.Equal(t, "A", out[1].RouteKey)
}

func TestApply_Pagination(t *testing.T) {
	itins := make([]model.Itinerary, 5)
	for i := range itins {
		itins[i] = model.Itinerary{RouteKey: string(rune('A' + i)), Metadata: model.ItineraryMetadata{TotalDuration: i}}
	}
	out, total := Apply(itins, Query{Page: 2, PageSize: 2, SortBy: "duration"})
	require.Equal(t, 5, total)
	require.Len(t, out, 2)
	assert.Equal(t, "C", out[0].RouteKey)
	assert.Equal(t, "D", out[1].RouteKey)
}

func TestComputeFacets(t *testing.T) {
	itins := []model.Itinerary{
		{Metadata: model.ItineraryMetadata{StopCount: 0, AirlineCodes: []string{"CX"}, Origin: "HAN", Destination: "LAX", TotalDuration: 600, DepartureTime: 100, ArrivalTime: 700}},
		{Metadata: model.ItineraryMetadata{StopCount: 1, AirlineCodes: []string{"VN"}, Origin: "HAN", Destination: "LAX", Connections: []string{"HKG"}, TotalDuration: 900, DepartureTime: 50, ArrivalTime: 1000}},
	}
	facets := ComputeFacets(itins)
	assert.Equal(t, []int{0, 1}, facets.Stops)
	assert.Equal(t, []string{"CX", "VN"}, facets.Airlines)
	assert.Equal(t, []string{"HKG"}, facets.Connections)
	assert.Equal(t, 600, facets.MinDuration)
	assert.Equal(t, 900, facets.MaxDuration)
	assert.Equal(t, int64(50), facets.MinDepartureTime)
}
