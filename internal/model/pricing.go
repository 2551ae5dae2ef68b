package model

import "fmt"

// PricingKey identifies a PricingEntry by (flight number, origin,
// destination, source), matching the availability provider's own keying.
type PricingKey struct {
	FlightNumber string `json:"flightNumber"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Source       string `json:"source"`
}

func (k PricingKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.FlightNumber, k.Origin, k.Destination, k.Source)
}

// PricingEntry is an optional per-cabin mileage/taxes/fare-class record; the
// provider omits it entirely when no pricing is available for a flight.
type PricingEntry struct {
	ID  string     `json:"id"`
	Key PricingKey `json:"key"`

	Mileage CabinCounts `json:"mileage"`
	Taxes   CabinCounts `json:"taxes"`

	FareClasses map[string][]string `json:"fareClasses,omitempty"` // keyed by single-letter cabin
}

// PricingIndex buckets pricing entries for O(1) lookup by both their own ID
// and by the (flight, route, source) key that an itinerary's flights are
// matched against during metadata precomputation (§4.6 invariant).
type PricingIndex struct {
	ByID            map[string]*PricingEntry
	ByFlightAndRoute map[string][]*PricingEntry
}

// NewPricingIndex returns an empty index ready for Add calls.
func NewPricingIndex() *PricingIndex {
	return &PricingIndex{
		ByID:             make(map[string]*PricingEntry),
		ByFlightAndRoute: make(map[string][]*PricingEntry),
	}
}

// Add registers a pricing entry under both of the index's lookup tables.
func (idx *PricingIndex) Add(p *PricingEntry) {
	idx.ByID[p.ID] = p
	key := p.Key.String()
	idx.ByFlightAndRoute[key] = append(idx.ByFlightAndRoute[key], p)
}

// Lookup returns the pricing entries, if any, matching a flight's number,
// origin, destination and source.
func (idx *PricingIndex) Lookup(flightNumber, origin, destination, source string) []*PricingEntry {
	key := PricingKey{FlightNumber: flightNumber, Origin: origin, Destination: destination, Source: source}.String()
	return idx.ByFlightAndRoute[key]
}
