package availability

import "strings"

// optimiseRouteGroups implements §4.5's optional route-group optimiser: it
// consolidates many candidate route-group strings into fewer provider
// subqueries via bipartite star decomposition, then bin-packs each star
// under target. A "star" is the set of route groups that already share an
// identical destination side (the "ORIG1/ORIG2-DEST1/DEST2" compact form's
// right half); their origin sides are unioned into one center and
// repartitioned into bins whose estimated offer count (origins x
// destinations, the only size proxy available before a call is made) stays
// at or under target. The result is equivalence-preserving: every
// (origin, destination) pair named by the input is covered by at least one
// output group's cross product. Stars are keyed by the whole destination
// side, so input groups whose destination sides overlap without being
// identical land in different stars and a shared pair is then covered
// more than once.
//
// target <= 0 disables consolidation (every input group is dispatched as
// its own subquery), since a non-positive target has no meaningful bin size.
func optimiseRouteGroups(routeGroups []string, target int) []string {
	if target <= 0 {
		return routeGroups
	}

	type star struct {
		destinations []string
		origins      []string
	}

	stars := make(map[string]*star)
	order := make([]string, 0, len(routeGroups))
	var passthrough []string

	for _, rg := range routeGroups {
		origins, destinations := splitRouteGroup(rg)
		if len(origins) == 0 || len(destinations) == 0 {
			passthrough = append(passthrough, rg)
			continue
		}

		key := strings.Join(destinations, "/")
		s, ok := stars[key]
		if !ok {
			s = &star{destinations: destinations}
			stars[key] = s
			order = append(order, key)
		}
		s.origins = appendUnique(s.origins, origins...)
	}

	out := make([]string, 0, len(order)+len(passthrough))
	for _, key := range order {
		s := stars[key]
		for _, bin := range binPackOrigins(s.origins, len(s.destinations), target) {
			out = append(out, joinRouteGroup(bin, s.destinations))
		}
	}
	return append(out, passthrough...)
}

// splitRouteGroup parses "ORIG1/ORIG2-DEST1/DEST2" into its origin and
// destination code lists. A malformed group (no "-") yields two nil slices.
func splitRouteGroup(rg string) (origins, destinations []string) {
	parts := strings.SplitN(rg, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil
	}
	return strings.Split(parts[0], "/"), strings.Split(parts[1], "/")
}

func joinRouteGroup(origins, destinations []string) string {
	return strings.Join(origins, "/") + "-" + strings.Join(destinations, "/")
}

// binPackOrigins splits origins into chunks sized so that chunk x destCount
// stays at or under target, preserving origins order. A single origin
// always forms its own bin even if destCount alone already exceeds target,
// since a star can't be split below one origin.
func binPackOrigins(origins []string, destCount, target int) [][]string {
	if destCount <= 0 {
		destCount = 1
	}
	perBin := target / destCount
	if perBin < 1 {
		perBin = 1
	}

	bins := make([][]string, 0, (len(origins)+perBin-1)/perBin)
	for i := 0; i < len(origins); i += perBin {
		end := i + perBin
		if end > len(origins) {
			end = len(origins)
		}
		bins = append(bins, origins[i:end])
	}
	return bins
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, d := range dst {
		seen[d] = true
	}
	for _, it := range items {
		if !seen[it] {
			dst = append(dst, it)
			seen[it] = true
		}
	}
	return dst
}
