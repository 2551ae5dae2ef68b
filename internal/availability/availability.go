// Package availability is the fan-out/fan-in fetcher of spec §4.5: given a
// list of route-group strings plus common filters, it first runs the
// route-group optimiser (bipartite star decomposition + bin packing under
// cache.optimiser_target_offers, see optimiser.go) to consolidate groups
// sharing a destination side into fewer subqueries, then calls the
// availability collaborator once per consolidated group (through §4.1's
// bounded pool), consulting the per-subquery cache first, then merges the
// per-call rate-limit headers by taking the minimum across all subqueries
// and sums the provider-reported upstream-request counters.
//
// Grounded on the teacher's provider client construction (resty, circuit
// breaker, bounded retries) generalized from "fetch routes once" to "fetch
// N per-group subqueries concurrently".
package availability

import (
	"context"
	"fmt"
	"strconv"

	"resty.dev/v3"

	"github.com/hachrisjordan/award-itin-engine/internal/concurrency"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/kvcache"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

const defaultRetryCount = 3

// CommonFilters are the fields shared by every subquery in one fan-out.
type CommonFilters struct {
	StartDate string
	EndDate   string
	Cabin     string
	Carriers  []string
	Seats     int
	United    bool
	Binbin    bool
	MaxStop   int
}

type subqueryBody struct {
	RouteID   string   `json:"routeId"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Cabin     string   `json:"cabin,omitempty"`
	Carriers  []string `json:"carriers,omitempty"`
	Seats     int      `json:"seats,omitempty"`
	United    bool     `json:"united,omitempty"`
	Binbin    bool     `json:"binbin,omitempty"`
	MaxStop   int      `json:"maxStop,omitempty"`
}

type subqueryResponse struct {
	Groups  []groupDTO           `json:"groups"`
	Pricing []model.PricingEntry `json:"pricing,omitempty"`
}

type groupDTO struct {
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Date        string         `json:"date"`
	Alliance    string         `json:"alliance"`
	Source      string         `json:"source"`
	Flights     []model.Flight `json:"flights"`
}

// SubqueryResult is one route group's fetched offers, or an error if that
// subquery alone failed (§4.13: "that subquery contributes empty set;
// others proceed").
type SubqueryResult struct {
	RouteGroup string
	Groups     []model.Group
	Pricing    []model.PricingEntry
	Err        error

	// RateLimitRemaining/RateLimitReset come from the provider's
	// x-ratelimit-remaining/x-ratelimit-reset headers, or -1 if the
	// subquery was served from cache (cache hits don't reflect live quota
	// and are excluded from the min-merge).
	RateLimitRemaining int
	RateLimitReset     int64

	// UpstreamHTTPRequests is the provider-reported request count this
	// subquery consumed (0 for cache hits, which made no upstream call).
	UpstreamHTTPRequests int
}

// FetchResult is the merged outcome of one full fan-out.
type FetchResult struct {
	Results                   []SubqueryResult
	MinRateLimitRemaining     int
	MinRateLimitReset         int64
	TotalUpstreamHTTPRequests int
}

// Fetcher calls the availability collaborator with bounded concurrency.
type Fetcher struct {
	http            *resty.Client
	cache           *kvcache.Facade
	concurrency     int
	optimiserTarget int
}

// New builds a Fetcher from the engine's availability collaborator config.
// optimiserTarget is cache.optimiser_target_offers (§4.5): the approximate
// offer count the route-group optimiser packs each consolidated subquery
// under before dispatch.
func New(cfg config.CollaboratorConfig, pool config.PoolConfig, optimiserTarget int, cache *kvcache.Facade) *Fetcher {
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetryCount
	}
	concurrencyLimit := pool.AvailabilityConcurrency
	if concurrencyLimit <= 0 {
		concurrencyLimit = 16
	}
	return &Fetcher{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(retries).
			SetCircuitBreaker(resty.NewCircuitBreaker()),
		cache:           cache,
		concurrency:     concurrencyLimit,
		optimiserTarget: optimiserTarget,
	}
}

// Fetch consolidates routeGroups through the route-group optimiser (§4.5),
// runs one subquery per consolidated group, fans them out through the
// bounded pool, and merges rate-limit headers and usage counters.
func (f *Fetcher) Fetch(ctx context.Context, routeGroups []string, filters CommonFilters) FetchResult {
	logger := logging.Context(ctx).With("component", "availability")

	routeGroups = optimiseRouteGroups(routeGroups, f.optimiserTarget)

	tasks := make([]concurrency.Task[SubqueryResult], len(routeGroups))
	for i, rg := range routeGroups {
		rg := rg
		tasks[i] = func(ctx context.Context) (SubqueryResult, error) {
			return f.fetchOne(ctx, rg, filters, logger), nil
		}
	}

	// A single subquery's internal error never aborts the fan-out (it is
	// captured in SubqueryResult.Err instead), so Run's own first-error
	// abort semantics never trigger here.
	results, _ := concurrency.Run(ctx, f.concurrency, tasks)

	merged := FetchResult{Results: results}
	minRemaining := -1
	minReset := int64(-1)
	var totalUpstream int

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if r.RateLimitRemaining >= 0 && (minRemaining < 0 || r.RateLimitRemaining < minRemaining) {
			minRemaining = r.RateLimitRemaining
		}
		if r.RateLimitReset >= 0 && (minReset < 0 || r.RateLimitReset < minReset) {
			minReset = r.RateLimitReset
		}
		totalUpstream += r.UpstreamHTTPRequests
	}

	merged.MinRateLimitRemaining = minRemaining
	merged.MinRateLimitReset = minReset
	merged.TotalUpstreamHTTPRequests = totalUpstream
	return merged
}

func (f *Fetcher) fetchOne(ctx context.Context, routeGroup string, filters CommonFilters, logger logging.Logger) SubqueryResult {
	cacheKey := kvcache.SubqueryKey(struct {
		RouteGroup string
		Filters    CommonFilters
	}{routeGroup, filters})

	var cached subqueryResponse
	if f.cache != nil && f.cache.GetSubquery(ctx, cacheKey, &cached) {
		result := toSubqueryResult(routeGroup, cached)
		result.RateLimitRemaining = -1
		result.RateLimitReset = -1
		return result
	}

	body := subqueryBody{
		RouteID:   routeGroup,
		StartDate: filters.StartDate,
		EndDate:   filters.EndDate,
		Cabin:     filters.Cabin,
		Carriers:  filters.Carriers,
		Seats:     filters.Seats,
		United:    filters.United,
		Binbin:    filters.Binbin,
		MaxStop:   filters.MaxStop,
	}

	var res subqueryResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&res).
		Post("/availability-v2")
	if err != nil {
		logger.Error("availability subquery request failed", "routeGroup", routeGroup, "error", err)
		return SubqueryResult{RouteGroup: routeGroup, Err: err, RateLimitRemaining: -1}
	}
	if resp.StatusCode() >= 300 {
		err := fmt.Errorf("availability subquery failed: %s", resp.String())
		logger.Error("availability subquery non-2xx", "routeGroup", routeGroup, "status", resp.StatusCode())
		return SubqueryResult{RouteGroup: routeGroup, Err: err, RateLimitRemaining: -1}
	}

	if f.cache != nil {
		f.cache.SetSubquery(ctx, cacheKey, res)
	}

	result := toSubqueryResult(routeGroup, res)
	result.RateLimitRemaining = parseIntHeader(resp.Header().Get("x-ratelimit-remaining"), -1)
	result.RateLimitReset = int64(parseIntHeader(resp.Header().Get("x-ratelimit-reset"), -1))
	result.UpstreamHTTPRequests = parseIntHeader(resp.Header().Get("x-upstream-requests"), 1)
	return result
}

func parseIntHeader(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func toSubqueryResult(routeGroup string, res subqueryResponse) SubqueryResult {
	groups := make([]model.Group, 0, len(res.Groups))
	for _, g := range res.Groups {
		group := model.Group{
			Origin:      g.Origin,
			Destination: g.Destination,
			Date:        g.Date,
			Alliance:    g.Alliance,
			Source:      g.Source,
		}
		for _, f := range g.Flights {
			group.Extend(f)
		}
		groups = append(groups, group)
	}
	return SubqueryResult{RouteGroup: routeGroup, Groups: groups, Pricing: res.Pricing}
}
