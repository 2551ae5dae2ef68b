// Package reliabilityfilter implements the reliability filter of spec
// §4.11: an itinerary is rejected when the flight-duration share of
// flights that are unreliable for every cabin exceeds (100 - threshold)
// percent of the itinerary's total duration. The per-flight reliability
// test is exposed separately so the metadata precomputer (§4.10) can
// reuse the identical carrier-minimum/exemption logic when computing
// class percentages — this overlap is deliberate per §9's instruction to
// keep the cabin-percentage math behind one small, heavily tested
// function.
package reliabilityfilter

import "github.com/hachrisjordan/award-itin-engine/internal/model"

// IsReliableForCabin reports whether flight f counts as reliable for the
// given cabin under rule: exempt cabins are always reliable, otherwise
// the flight's seat count for that cabin must meet the carrier minimum.
func IsReliableForCabin(f model.Flight, rule model.ReliabilityRule, cabin string) bool {
	return rule.ReliableForCabin(cabin, f.Seats.Get(cabin))
}

// IsUnreliableForAllCabins reports whether f is unreliable for every
// cabin (Y, W, J, F) — the condition §4.11 sums durations over.
func IsUnreliableForAllCabins(f model.Flight, rule model.ReliabilityRule) bool {
	for _, cabin := range []string{"Y", "W", "J", "F"} {
		if IsReliableForCabin(f, rule, cabin) {
			return false
		}
	}
	return true
}

// UnreliableDuration sums the duration of every flight in flights that is
// unreliable for all cabins, looking up each flight's carrier rule by its
// airline prefix.
func UnreliableDuration(flights []model.Flight, table model.ReliabilityTable) int {
	total := 0
	for _, f := range flights {
		rule := table.Lookup(f.AirlinePrefix())
		if IsUnreliableForAllCabins(f, rule) {
			total += f.DurationMinutes
		}
	}
	return total
}

// Accept reports whether an itinerary passes the reliability filter at
// the given threshold percent (0-100): it is rejected iff the unreliable
// flight-duration share, expressed as a percentage of totalDurationMinutes
// (flight time plus layovers, per SPEC_FULL.md's open-question decision
// on §3's "total duration" wording), exceeds (100 - threshold).
func Accept(flights []model.Flight, totalDurationMinutes int, table model.ReliabilityTable, thresholdPercent int) bool {
	if totalDurationMinutes <= 0 {
		return true
	}
	unreliable := UnreliableDuration(flights, table)
	unreliablePercent := float64(unreliable) / float64(totalDurationMinutes) * 100
	return unreliablePercent <= float64(100-thresholdPercent)
}
