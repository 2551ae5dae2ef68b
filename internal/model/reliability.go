package model

import "strings"

// ReliabilityRule is the per-carrier-prefix rule loaded from the
// reliability table (§3, §4.4).
type ReliabilityRule struct {
	CarrierPrefix string `json:"carrierPrefix"`

	// MinCount is the minimum seat count required for a flight to count as
	// reliable for a given cabin, unless that cabin is in CabinExempt.
	MinCount int `json:"minCount"`

	// CabinExempt is a subset of "Y","W","J","F": cabins for which the
	// MinCount requirement is waived entirely.
	CabinExempt string `json:"cabinExempt"`

	FrequentFlyerPrograms []string `json:"frequentFlyerPrograms,omitempty"`
}

// Exempt reports whether cabin is exempt from the minimum-count check.
func (r ReliabilityRule) Exempt(cabin string) bool {
	return strings.Contains(r.CabinExempt, cabin)
}

// ReliableForCabin reports whether a flight with the given seat count for
// cabin is reliable under this rule: exempt cabins are always reliable;
// otherwise the count must meet the minimum.
func (r ReliabilityRule) ReliableForCabin(cabin string, count int) bool {
	if r.Exempt(cabin) {
		return true
	}
	return count >= r.MinCount
}

// ReliabilityTable is a process-wide, per-carrier-prefix lookup. The zero
// value behaves as an empty table (every carrier treated as fully reliable
// with MinCount 1 per §4.13's failure-semantics fallback).
type ReliabilityTable map[string]ReliabilityRule

// Lookup returns the rule for a carrier prefix, or a permissive default
// (MinCount 1, no exemptions) when the table has no rule for it — this is
// the §4.13 fallback applied uniformly rather than special-cased at every
// call site.
func (t ReliabilityTable) Lookup(carrierPrefix string) ReliabilityRule {
	if rule, ok := t[carrierPrefix]; ok {
		return rule
	}
	return ReliabilityRule{CarrierPrefix: carrierPrefix, MinCount: 1}
}
