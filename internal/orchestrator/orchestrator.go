// Package orchestrator composes every stage of the engine into one request
// lifecycle (spec §2, §4.13): validate, rate-limit, check the filtered
// cache; on a filtered-cache miss, rotate a provider credential, then check
// the raw cache (the credential is rotated before the raw-cache lookup, so
// a raw-cache hit also consumes one); on a raw-cache miss, call the
// route-topology and availability collaborators, build the
// segment pool and connection matrices, compose itineraries per candidate
// route, post-process, precompute metadata, write the raw cache, then
// filter/sort/paginate and write the filtered cache.
//
// Grounded on the teacher's usecase-service orchestration shape
// (internal/usecases wiring a single service that the API handler calls
// into), generalized from "aggregate N providers" to this engine's
// multi-stage pipeline.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
	"github.com/hachrisjordan/award-itin-engine/internal/availability"
	"github.com/hachrisjordan/award-itin-engine/internal/composer"
	"github.com/hachrisjordan/award-itin-engine/internal/concurrency"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/connection"
	"github.com/hachrisjordan/award-itin-engine/internal/credential"
	"github.com/hachrisjordan/award-itin-engine/internal/kvcache"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/metadata"
	"github.com/hachrisjordan/award-itin-engine/internal/metrics"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/postprocess"
	"github.com/hachrisjordan/award-itin-engine/internal/prefilter"
	"github.com/hachrisjordan/award-itin-engine/internal/ratelimit"
	"github.com/hachrisjordan/award-itin-engine/internal/reliability"
	"github.com/hachrisjordan/award-itin-engine/internal/segmentpool"
	"github.com/hachrisjordan/award-itin-engine/internal/topology"
	"github.com/hachrisjordan/award-itin-engine/internal/uuidgen"
)

const defaultMinReliabilityPercent = 85
const defaultSeats = 1
const uuidCacheSize = 100_000

// BuildRequest is the parsed POST /build-itineraries body (§6) plus the
// caller-identifying and pagination-shape fields the rate-limit gate needs.
type BuildRequest struct {
	Origin      string // "/"-separated airport or city codes
	Destination string

	MaxStop   int
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD

	APIKey string

	Cabin                 string
	Carriers              []string
	MinReliabilityPercent int
	Seats                 int
	United                bool
	Binbin                bool
	Region                bool

	ClientID    string // caller IP, for rate limiting
	IsPaginated bool   // page > 1 OR pageSize explicit in the query string
}

// coreParams is the cache key's "core params" component (§4.2): everything
// that changes the underlying pipeline output, as opposed to the
// filter/sort/paginate params that only change the view over it.
type coreParams struct {
	MaxStop               int
	StartDate, EndDate     string
	Cabin                 string
	Carriers              []string
	MinReliabilityPercent int
	Seats                 int
	United, Binbin, Region bool
}

func (r BuildRequest) coreParams() coreParams {
	return coreParams{
		MaxStop: r.MaxStop, StartDate: r.StartDate, EndDate: r.EndDate,
		Cabin: r.Cabin, Carriers: r.Carriers, MinReliabilityPercent: r.MinReliabilityPercent,
		Seats: r.Seats, United: r.United, Binbin: r.Binbin, Region: r.Region,
	}
}

// Validate checks the request body's field constraints (§6), filling in
// defaults for optional fields, and returns an InvalidInput *apperror.Error
// carrying per-field detail for every violation found.
func (r *BuildRequest) Validate() error {
	fields := map[string]string{}

	if r.Origin == "" {
		fields["origin"] = "origin is required"
	}
	if r.Destination == "" {
		fields["destination"] = "destination is required"
	}
	if r.MaxStop < 0 || r.MaxStop > 4 {
		fields["maxStop"] = "maxStop must be between 0 and 4"
	}
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		fields["startDate"] = "startDate must be YYYY-MM-DD"
	}
	end, err2 := time.Parse("2006-01-02", r.EndDate)
	if err2 != nil {
		fields["endDate"] = "endDate must be YYYY-MM-DD"
	}
	if err == nil && err2 == nil && end.Before(start) {
		fields["endDate"] = "endDate must not be before startDate"
	}
	if r.MinReliabilityPercent == 0 {
		r.MinReliabilityPercent = defaultMinReliabilityPercent
	}
	if r.MinReliabilityPercent < 0 || r.MinReliabilityPercent > 100 {
		fields["minReliabilityPercent"] = "minReliabilityPercent must be between 0 and 100"
	}
	if r.Seats == 0 {
		r.Seats = defaultSeats
	}
	if r.Seats < 1 {
		fields["seats"] = "seats must be at least 1"
	}

	if len(fields) > 0 {
		return apperror.InvalidInput("invalid build-itineraries request", fields)
	}
	return nil
}

func (r BuildRequest) dateSpanDays() int {
	start, err1 := time.Parse("2006-01-02", r.StartDate)
	end, err2 := time.Parse("2006-01-02", r.EndDate)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

func codeCount(csv string) int {
	if csv == "" {
		return 0
	}
	return len(strings.Split(csv, "/"))
}

// Response is the engine's POST /build-itineraries response body (§6).
type Response struct {
	Itineraries []model.Itinerary
	Flights     map[string]model.Flight
	Pricing     map[string]model.PricingEntry

	Total    int
	Page     int
	PageSize int

	MinRateLimitRemaining     int
	MinRateLimitReset         int64
	TotalUpstreamHTTPRequests int

	FilterMetadata metadata.FacetRanges
}

// rawPayload is the full, pre-filter pipeline output cached under the raw
// cache key (§4.2): everything downstream filter/sort/paginate calls need
// without re-running topology, availability, composition or post-process.
type rawPayload struct {
	Itineraries    []model.Itinerary
	Flights        map[string]model.Flight
	Pricing        map[string]model.PricingEntry
	RouteStructures []model.RouteStructure

	RateLimitRemaining     int
	RateLimitReset         int64
	UpstreamHTTPRequests   int
}

// Orchestrator wires every engine stage into the request lifecycle.
type Orchestrator struct {
	topology     *topology.Client
	availability *availability.Fetcher
	cache        *kvcache.Facade
	rateLimit    *ratelimit.Gate
	reliability  *reliability.Cache
	credential   *credential.Store
	metrics      *metrics.Store

	cities   model.CityGroup
	uuids    *uuidgen.Cache
	poolSize int

	logger logging.Logger
}

// New builds an Orchestrator from its collaborator clients and process-wide
// reference data. cfg supplies the parallel-route composition threshold
// (pool.parallel_route_threshold) rather than a bare int, so fx's
// type-based injection never has to disambiguate this int from any other
// the graph might one day provide.
func New(
	topologyClient *topology.Client,
	availabilityFetcher *availability.Fetcher,
	cache *kvcache.Facade,
	rateLimitGate *ratelimit.Gate,
	reliabilityCache *reliability.Cache,
	credentialStore *credential.Store,
	metricsStore *metrics.Store,
	cities model.CityGroup,
	cfg config.Config,
	logger logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		topology:     topologyClient,
		availability: availabilityFetcher,
		cache:        cache,
		rateLimit:    rateLimitGate,
		reliability:  reliabilityCache,
		credential:   credentialStore,
		metrics:      metricsStore,
		cities:       cities,
		uuids:        uuidgen.New(uuidCacheSize),
		poolSize:     cfg.Pool.ParallelRouteThreshold,
		logger:       logger.With("component", "orchestrator"),
	}
}

// Handle runs the full request lifecycle and returns the filtered, sorted,
// paginated response.
func (o *Orchestrator) Handle(ctx context.Context, req BuildRequest, query metadata.Query) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	if o.rateLimit != nil {
		if err := o.rateLimit.Check(ctx, ratelimit.Request{
			ClientID:    req.ClientID,
			Core:        ratelimit.CoreTuple{Origin: req.Origin, Destination: req.Destination, MaxStop: req.MaxStop, StartDate: req.StartDate, EndDate: req.EndDate},
			HasAPIKey:   req.APIKey != "",
			IsPaginated: req.IsPaginated,

			DateSpanDays: req.dateSpanDays(),
			MaxStop:      req.MaxStop,
			OriginCount:  codeCount(req.Origin),
			DestCount:    codeCount(req.Destination),
			PageSize:     query.PageSize,
		}); err != nil {
			return Response{}, err
		}
	}

	rawKey := kvcache.RawKey(req.Origin, req.Destination, req.coreParams())
	filteredKey := kvcache.FilteredKey(rawKey, query)

	var resp Response
	if o.cache != nil && o.cache.GetFiltered(ctx, filteredKey, &resp) {
		return resp, nil
	}

	if o.credential != nil {
		key, err := o.credential.Acquire(ctx)
		if err != nil {
			return Response{}, err
		}
		if err := o.credential.Consume(ctx, key); err != nil {
			o.logger.Warn("credential consume lost the CAS race, proceeding on this request anyway", "error", err)
		}
	}

	payload, err := o.loadRawPayload(ctx, rawKey, req)
	if err != nil {
		return Response{}, err
	}

	if o.metrics != nil {
		routeKey := req.Origin + "-" + req.Destination
		if err := o.metrics.RecordRequest(ctx, routeKey); err != nil {
			o.logger.Warn("route metrics record failed, continuing", "routeKey", routeKey, "error", err)
		}
	}

	resp = o.applyFilterSortPaginate(payload, query)

	if o.cache != nil {
		o.cache.SetFiltered(ctx, filteredKey, resp)
	}
	return resp, nil
}

func (o *Orchestrator) applyFilterSortPaginate(payload rawPayload, query metadata.Query) Response {
	page, total := metadata.Apply(payload.Itineraries, query)
	facets := metadata.ComputeFacets(payload.Itineraries)

	usedFlights := make(map[string]model.Flight)
	usedPricing := make(map[string]model.PricingEntry)
	for _, it := range page {
		for _, u := range it.FlightUUIDs {
			if f, ok := payload.Flights[u]; ok {
				usedFlights[u] = f
			}
		}
		for _, pid := range it.Metadata.PricingIDs {
			if p, ok := payload.Pricing[pid]; ok {
				usedPricing[pid] = p
			}
		}
	}

	return Response{
		Itineraries:               page,
		Flights:                   usedFlights,
		Pricing:                   usedPricing,
		Total:                     total,
		Page:                      query.Page,
		PageSize:                  query.PageSize,
		MinRateLimitRemaining:     payload.RateLimitRemaining,
		MinRateLimitReset:         payload.RateLimitReset,
		TotalUpstreamHTTPRequests: payload.UpstreamHTTPRequests,
		FilterMetadata:            facets,
	}
}

// loadRawPayload returns the cached raw payload if present, otherwise runs
// the full pipeline and caches the result (§4.2, best-effort).
func (o *Orchestrator) loadRawPayload(ctx context.Context, rawKey string, req BuildRequest) (rawPayload, error) {
	var cached rawPayload
	if o.cache != nil && o.cache.GetRaw(ctx, rawKey, &cached) {
		return cached, nil
	}

	payload, err := o.runPipeline(ctx, req)
	if err != nil {
		return rawPayload{}, err
	}

	if o.cache != nil {
		o.cache.SetRaw(ctx, rawKey, payload)
	}
	return payload, nil
}

// runPipeline executes topology -> availability -> segment pool ->
// connection matrices -> composition -> post-process for a cache miss.
func (o *Orchestrator) runPipeline(ctx context.Context, req BuildRequest) (rawPayload, error) {
	topo, err := o.topology.CreateFullRoutePath(ctx, topology.Request{
		Origin: req.Origin, Destination: req.Destination, MaxStop: req.MaxStop,
		Binbin: req.Binbin, Region: req.Region,
	})
	if err != nil {
		return rawPayload{}, err
	}
	if len(topo.Routes) == 0 {
		return rawPayload{}, apperror.NoRoutes()
	}

	fetch := o.availability.Fetch(ctx, topo.QueryParamsArr, availability.CommonFilters{
		StartDate: req.StartDate, EndDate: req.EndDate, Cabin: req.Cabin, Carriers: req.Carriers,
		Seats: req.Seats, United: req.United, Binbin: req.Binbin, MaxStop: req.MaxStop,
	})

	pool := segmentpool.New()
	var groups []model.Group
	for _, r := range fetch.Results {
		if r.Err != nil {
			continue
		}
		groups = append(groups, r.Groups...)
		for _, p := range r.Pricing {
			pool.AddPricing(p)
		}
	}

	connection.PrecomputeFlightTimings(groups)
	connection.AssignUUIDs(o.uuids, groups)
	for _, g := range groups {
		pool.AddGroup(g)
	}

	flightsByUUID := make(map[string]model.Flight)
	for _, g := range groups {
		for _, f := range g.Flights {
			flightsByUUID[f.UUID] = f
		}
	}

	filteredRoutes := prefilter.Apply(topo.Routes, o.cities, pool)

	groupMatrix := connection.BuildGroupMatrix(groups)
	flightMatrix := connection.BuildFlightMatrix(groups, groupMatrix)

	composedRoutes := o.composeRoutes(ctx, filteredRoutes, pool, flightMatrix)

	reliabilityTable := model.ReliabilityTable{}
	if o.reliability != nil {
		reliabilityTable = o.reliability.Table(ctx)
	}

	out, err := postprocess.Run(postprocess.Input{
		Routes:           composedRoutes,
		FlightsByUUID:    flightsByUUID,
		Cities:           o.cities,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		ReliabilityTable: reliabilityTable,
		ThresholdPercent: req.MinReliabilityPercent,
		Pricing:          pool.Pricing,
	})
	if err != nil {
		return rawPayload{}, apperror.Internal(err)
	}

	pricingByID := make(map[string]model.PricingEntry, len(pool.Pricing.ByID))
	for id, p := range pool.Pricing.ByID {
		pricingByID[id] = *p
	}

	return rawPayload{
		Itineraries:          out.Itineraries,
		Flights:              out.Flights,
		Pricing:              pricingByID,
		RouteStructures:      filteredRoutes,
		RateLimitRemaining:   fetch.MinRateLimitRemaining,
		RateLimitReset:       fetch.MinRateLimitReset,
		UpstreamHTTPRequests: fetch.TotalUpstreamHTTPRequests,
	}, nil
}

// composeRoutes runs the DFS composer over every candidate route. Routes
// run in parallel through the bounded pool once the candidate count
// exceeds the configured threshold (§5); below it, sequentially, since
// per-route composition is CPU-bound and cheap enough that pool overhead
// would outweigh the benefit.
func (o *Orchestrator) composeRoutes(ctx context.Context, routes []model.RouteStructure, pool *segmentpool.Pool, flightMatrix model.FlightMatrix) []postprocess.ComposedRoute {
	if len(routes) <= o.poolSize {
		out := make([]postprocess.ComposedRoute, len(routes))
		for i, route := range routes {
			out[i] = postprocess.ComposedRoute{ByDate: composer.Compose(buildSegments(route, o.cities, pool), flightMatrix)}
		}
		return out
	}

	tasks := make([]concurrency.Task[postprocess.ComposedRoute], len(routes))
	for i, route := range routes {
		route := route
		tasks[i] = func(ctx context.Context) (postprocess.ComposedRoute, error) {
			return postprocess.ComposedRoute{ByDate: composer.Compose(buildSegments(route, o.cities, pool), flightMatrix)}, nil
		}
	}
	out, err := concurrency.Run(ctx, o.poolSize, tasks)
	if err != nil {
		// Composition tasks never return an error; unreachable in practice.
		o.logger.Error("parallel route composition failed unexpectedly", "error", err)
		return nil
	}
	return out
}

// buildSegments resolves one candidate route's waypoint chain into
// composer.Segments: each hop's flight pool is the union of every group
// offering the (possibly city-expanded) airport pair, restricted to the
// hop's alliance whitelist.
func buildSegments(route model.RouteStructure, cities model.CityGroup, pool *segmentpool.Pool) []composer.Segment {
	keys := route.SegmentKeys()
	segments := make([]composer.Segment, 0, len(keys))

	for i, key := range keys {
		whitelist := route.AllianceFor(i, len(keys))

		var flights []model.Flight
		for _, from := range cities.ExpandWaypoint(key.From) {
			for _, to := range cities.ExpandWaypoint(key.To) {
				for _, g := range pool.Groups(from, to) {
					if len(whitelist) > 0 && !containsAlliance(whitelist, g.Alliance) {
						continue
					}
					flights = append(flights, g.Flights...)
				}
			}
		}

		segments = append(segments, composer.Segment{From: key.From, To: key.To, Flights: flights})
	}
	return segments
}

func containsAlliance(whitelist []string, alliance string) bool {
	for _, w := range whitelist {
		if w == alliance {
			return true
		}
	}
	return false
}
