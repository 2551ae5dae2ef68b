// Package segmentpool buckets the availability fetcher's output by
// (origin, destination) segment key and maintains the pricing index the
// metadata precomputer later matches itineraries against (spec §4.6).
package segmentpool

import "github.com/hachrisjordan/award-itin-engine/internal/model"

// Pool maps a segment key to the ordered Groups offering it. Insertion
// order is irrelevant; duplicate groups are permitted here — dedup
// happens later, per-UUID, in post-processing.
type Pool struct {
	Segments map[model.SegmentKey][]model.Group
	Pricing  *model.PricingIndex
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{
		Segments: make(map[model.SegmentKey][]model.Group),
		Pricing:  model.NewPricingIndex(),
	}
}

// AddGroup appends a Group under its (origin, destination) segment key.
func (p *Pool) AddGroup(g model.Group) {
	key := model.SegmentKey{From: g.Origin, To: g.Destination}
	p.Segments[key] = append(p.Segments[key], g)
}

// AddPricing registers a pricing entry in both of the index's lookups.
func (p *Pool) AddPricing(entry model.PricingEntry) {
	e := entry
	p.Pricing.Add(&e)
}

// Groups returns the groups offering segment key (from, to), or nil if
// none were fetched.
func (p *Pool) Groups(from, to string) []model.Group {
	return p.Segments[model.SegmentKey{From: from, To: to}]
}

// HasSegment reports whether at least one group offers the (from, to)
// segment — the test the route pre-filter (§4.8) uses to drop candidate
// routes.
func (p *Pool) HasSegment(from, to string) bool {
	return len(p.Segments[model.SegmentKey{From: from, To: to}]) > 0
}
