package reliabilityfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

func rule(prefix string, min int, exempt string) model.ReliabilityRule {
	return model.ReliabilityRule{CarrierPrefix: prefix, MinCount: min, CabinExempt: exempt}
}

func TestIsReliableForCabin_ExemptAlwaysReliable(t *testing.T) {
	r := rule("CX", 5, "Y")
	f := model.Flight{Seats: model.CabinCounts{Y: 0}}
	assert.True(t, IsReliableForCabin(f, r, "Y"))
}

func TestIsReliableForCabin_BelowMinimumUnreliable(t *testing.T) {
	r := rule("CX", 5, "")
	f := model.Flight{Seats: model.CabinCounts{J: 2}}
	assert.False(t, IsReliableForCabin(f, r, "J"))
}

func TestIsUnreliableForAllCabins(t *testing.T) {
	r := rule("CX", 5, "")
	reliableSome := model.Flight{Seats: model.CabinCounts{Y: 0, W: 0, J: 9, F: 0}}
	assert.False(t, IsUnreliableForAllCabins(reliableSome, r))

	unreliableAll := model.Flight{Seats: model.CabinCounts{Y: 0, W: 0, J: 0, F: 0}}
	assert.True(t, IsUnreliableForAllCabins(unreliableAll, r))
}

func TestUnreliableDuration_SumsOnlyFullyUnreliableFlights(t *testing.T) {
	table := model.ReliabilityTable{
		"CX": rule("CX", 5, ""),
		"VN": rule("VN", 1, "Y,W,J,F"),
	}
	flights := []model.Flight{
		{FlightNumber: "CX800", DurationMinutes: 120, Seats: model.CabinCounts{}},       // unreliable, all zero
		{FlightNumber: "VN100", DurationMinutes: 90, Seats: model.CabinCounts{}},        // exempt everywhere, reliable
		{FlightNumber: "CX801", DurationMinutes: 60, Seats: model.CabinCounts{Y: 9}},    // reliable for Y
	}

	assert.Equal(t, 120, UnreliableDuration(flights, table))
}

func TestAccept_WithinThreshold(t *testing.T) {
	table := model.ReliabilityTable{"CX": rule("CX", 5, "")}
	flights := []model.Flight{
		{FlightNumber: "CX800", DurationMinutes: 60, Seats: model.CabinCounts{}},
		{FlightNumber: "CX801", DurationMinutes: 240, Seats: model.CabinCounts{Y: 9}},
	}
	// total duration (including layovers) is 360; unreliable is 60 -> ~16.7%.
	// threshold 80 means itineraries are rejected above (100-80)=20% unreliable.
	assert.True(t, Accept(flights, 360, table, 80))
}

func TestAccept_ExceedsThreshold(t *testing.T) {
	table := model.ReliabilityTable{"CX": rule("CX", 5, "")}
	flights := []model.Flight{
		{FlightNumber: "CX800", DurationMinutes: 300, Seats: model.CabinCounts{}},
		{FlightNumber: "CX801", DurationMinutes: 60, Seats: model.CabinCounts{Y: 9}},
	}
	// totalDuration 400 (with layovers), unreliable 300 -> 75% unreliable, far above (100-80)=20%.
	assert.False(t, Accept(flights, 400, table, 80))
}

func TestAccept_ZeroTotalDurationDefaultsAccept(t *testing.T) {
	assert.True(t, Accept(nil, 0, model.ReliabilityTable{}, 80))
}
