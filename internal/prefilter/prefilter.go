// Package prefilter drops candidate routes whose segments have no entry
// in the segment pool before composition ever begins (spec §4.8). Region
// routes skip this check: the upstream enumerator already validated them.
package prefilter

import (
	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/segmentpool"
)

// HasOffers is the subset of segmentpool.Pool's API this package needs,
// kept narrow so tests can fake it directly.
type HasOffers interface {
	HasSegment(from, to string) bool
}

var _ HasOffers = (*segmentpool.Pool)(nil)

// Apply returns the subset of routes for which every concrete (from, to)
// segment — after city-group expansion — has at least one offer in pool.
// Region routes are passed through unfiltered.
func Apply(routes []model.RouteStructure, cities model.CityGroup, pool HasOffers) []model.RouteStructure {
	filtered := make([]model.RouteStructure, 0, len(routes))
	for _, route := range routes {
		if route.Region || hasAllSegments(route, cities, pool) {
			filtered = append(filtered, route)
		}
	}
	return filtered
}

func hasAllSegments(route model.RouteStructure, cities model.CityGroup, pool HasOffers) bool {
	for i := 0; i+1 < len(route.Waypoints); i++ {
		if !segmentHasOffers(route.Waypoints[i], route.Waypoints[i+1], cities, pool) {
			return false
		}
	}
	return true
}

// segmentHasOffers reports whether any concrete airport pairing formed by
// expanding from/to's city waypoints has an offer in the pool.
func segmentHasOffers(from, to string, cities model.CityGroup, pool HasOffers) bool {
	for _, f := range cities.ExpandWaypoint(from) {
		for _, t := range cities.ExpandWaypoint(to) {
			if pool.HasSegment(f, t) {
				return true
			}
		}
	}
	return false
}
