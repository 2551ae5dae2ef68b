package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hachrisjordan/award-itin-engine/internal/availability"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/uuidgen"
)

func mkFlight(num, origin, dest string, dep, arr time.Time) model.Flight {
	return model.Flight{
		FlightNumber: num,
		Origin:       origin,
		Destination:  dest,
		DepartsAt:    dep,
		ArrivesAt:    arr,
	}
}

func mkGroup(origin, dest, date string, flights ...model.Flight) model.Group {
	g := model.Group{Origin: origin, Destination: dest, Date: date, Source: "test"}
	for _, f := range flights {
		g.Extend(f)
	}
	return g
}

func TestBuildGroupMatrix_ConnectsWithinWindow(t *testing.T) {
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	a := mkGroup("HAN", "SGN", "2026-02-11",
		mkFlight("VN100", "HAN", "SGN", day.Add(9*time.Hour), day.Add(11*time.Hour)))
	b := mkGroup("SGN", "BKK", "2026-02-11",
		mkFlight("VN200", "SGN", "BKK", day.Add(12*time.Hour), day.Add(13*time.Hour+30*time.Minute)))

	matrix := BuildGroupMatrix([]model.Group{a, b})
	assert.True(t, matrix.Connects(a.Key(), b.Key()))
}

func TestBuildGroupMatrix_RejectsOutOfWindow(t *testing.T) {
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	a := mkGroup("HAN", "SGN", "2026-02-11",
		mkFlight("VN100", "HAN", "SGN", day.Add(9*time.Hour), day.Add(11*time.Hour)))
	// Departs 30 min after arrival: below the 45-min floor.
	b := mkGroup("SGN", "BKK", "2026-02-11",
		mkFlight("VN200", "SGN", "BKK", day.Add(11*time.Hour+30*time.Minute), day.Add(13*time.Hour)))

	matrix := BuildGroupMatrix([]model.Group{a, b})
	assert.False(t, matrix.Connects(a.Key(), b.Key()))
}

func TestBuildGroupMatrix_EmptyEnvelopeConnectsConservatively(t *testing.T) {
	a := model.Group{Origin: "HAN", Destination: "SGN"}
	b := model.Group{Origin: "SGN", Destination: "BKK"}

	matrix := BuildGroupMatrix([]model.Group{a, b})
	assert.True(t, matrix.Connects(a.Key(), b.Key()))
}

func TestBuildFlightMatrix_S3ConnectionWindow(t *testing.T) {
	base := time.Date(2026, 2, 11, 8, 0, 0, 0, time.UTC) // prev arrives 08:00

	prev := mkFlight("VN100", "HAN", "SGN", base.Add(-2*time.Hour), base)
	candidate1 := mkFlight("VN201", "SGN", "BKK", base.Add(30*time.Minute), base.Add(2*time.Hour)) // gap 30 min: reject
	candidate2 := mkFlight("VN202", "SGN", "BKK", base.Add(50*time.Minute), base.Add(2*time.Hour)) // gap 50 min: accept
	candidate3 := mkFlight("VN203", "SGN", "BKK", base.Add(25*time.Hour), base.Add(27*time.Hour))  // gap 25h: reject

	a := mkGroup("HAN", "SGN", "2026-02-11", prev)
	b := mkGroup("SGN", "BKK", "2026-02-11", candidate1, candidate2, candidate3)

	groups := []model.Group{a, b}
	PrecomputeFlightTimings(groups)

	cache := uuidgen.New(0)
	AssignUUIDs(cache, groups)

	groupMatrix := BuildGroupMatrix(groups)
	flightMatrix := BuildFlightMatrix(groups, groupMatrix)

	prevUUID := groups[0].Flights[0].UUID
	reachable := flightMatrix[prevUUID]

	require.NotNil(t, reachable)
	_, ok1 := reachable[groups[1].Flights[0].UUID]
	_, ok2 := reachable[groups[1].Flights[1].UUID]
	_, ok3 := reachable[groups[1].Flights[2].UUID]

	assert.False(t, ok1, "30 minute gap should be rejected")
	assert.True(t, ok2, "50 minute gap should be accepted")
	assert.False(t, ok3, "25 hour gap should be rejected")
}

// TestBuildGroupMatrix_PruningEngagesForFetchBuiltGroups is an
// integration-level check across internal/availability and
// internal/connection: it builds groups the way the availability fetcher
// actually does (via its unexported toSubqueryResult, reached only through
// Fetch), not through this file's mkGroup test helper. If availability ever
// stops folding flights into a group's timing envelope, HasEnvelope goes
// back to false for every real group and this hot-path pruning pass
// degrades to "everything connects" silently; this test catches that
// regression even though mkGroup-based tests above would not.
func TestBuildGroupMatrix_PruningEngagesForFetchBuiltGroups(t *testing.T) {
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"groups": [
			{"origin": "HAN", "destination": "SGN", "date": "2026-02-11", "source": "test",
			 "flights": [{"flightNumber": "VN100", "origin": "HAN", "destination": "SGN",
			              "departsAt": "` + day.Add(9*time.Hour).Format(time.RFC3339) + `",
			              "arrivesAt": "` + day.Add(11*time.Hour).Format(time.RFC3339) + `"}]},
			{"origin": "SGN", "destination": "BKK", "date": "2026-02-11", "source": "test",
			 "flights": [{"flightNumber": "VN200", "origin": "SGN", "destination": "BKK",
			              "departsAt": "` + day.Add(11*time.Hour+30*time.Minute).Format(time.RFC3339) + `",
			              "arrivesAt": "` + day.Add(13*time.Hour).Format(time.RFC3339) + `"}]}
		]}`))
	}))
	defer srv.Close()

	fetcher := availability.New(
		config.CollaboratorConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
		config.PoolConfig{AvailabilityConcurrency: 4},
		0,
		nil,
	)

	result := fetcher.Fetch(context.Background(), []string{"HAN-SGN-BKK"}, availability.CommonFilters{})
	require.Len(t, result.Results, 1)
	require.NoError(t, result.Results[0].Err)

	groups := result.Results[0].Groups
	require.Len(t, groups, 2)
	require.True(t, groups[0].HasEnvelope, "groups built by the availability fetcher must carry a populated timing envelope")
	require.True(t, groups[1].HasEnvelope)

	matrix := BuildGroupMatrix(groups)
	// b departs 30 minutes after a arrives: below the 45-minute floor, so
	// the hot-path envelope check must reject this pair outright.
	assert.False(t, matrix.Connects(groups[0].Key(), groups[1].Key()),
		"hot-path pruning must reject an out-of-window pair once groups carry populated timing envelopes")
}

func TestPrecomputeFlightTimings_SetsEpochFields(t *testing.T) {
	dep := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	arr := time.Date(2026, 2, 11, 11, 0, 0, 0, time.UTC)
	g := mkGroup("HAN", "SGN", "2026-02-11", mkFlight("VN100", "HAN", "SGN", dep, arr))
	groups := []model.Group{g}

	PrecomputeFlightTimings(groups)

	assert.Equal(t, dep.UnixMilli(), groups[0].Flights[0].DepartEpochMs)
	assert.Equal(t, arr.UnixMilli(), groups[0].Flights[0].ArriveEpochMs)
}
