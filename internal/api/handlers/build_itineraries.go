// Package handlers holds the gin handlers for the HTTP ingress (spec §6).
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/metadata"
	"github.com/hachrisjordan/award-itin-engine/internal/orchestrator"
)

// buildItinerariesBody is the POST /build-itineraries request body (§6).
type buildItinerariesBody struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	MaxStop     int    `json:"maxStop" binding:"min=0,max=4"`
	StartDate   string `json:"startDate" binding:"required"`
	EndDate     string `json:"endDate" binding:"required"`
	APIKey      string `json:"apiKey"`

	Cabin                 string   `json:"cabin"`
	Carriers              []string `json:"carriers"`
	MinReliabilityPercent *int     `json:"minReliabilityPercent" binding:"omitempty,min=0,max=100"`
	Seats                 *int     `json:"seats" binding:"omitempty,min=1"`
	United                bool     `json:"united"`
	Binbin                bool     `json:"binbin"`
	Region                bool     `json:"region"`
}

// BuildItinerariesHandler serves POST /build-itineraries.
type BuildItinerariesHandler struct {
	orchestrator *orchestrator.Orchestrator
	validate     *validator.Validate
	logger       logging.Logger
}

// NewBuildItinerariesHandler builds the handler.
func NewBuildItinerariesHandler(o *orchestrator.Orchestrator, logger logging.Logger) *BuildItinerariesHandler {
	return &BuildItinerariesHandler{
		orchestrator: o,
		validate:     validator.New(),
		logger:       logger.With("component", "build_itineraries_handler"),
	}
}

// Handle parses the body and query parameters, runs the orchestrator, and
// writes the response (§6).
func (h *BuildItinerariesHandler) Handle(c *gin.Context) {
	var body buildItinerariesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fields := map[string]string{"body": err.Error()}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				name := fe.Field()
				fields[strings.ToLower(name[:1])+name[1:]] = fe.Error()
			}
		}
		writeError(c, apperror.InvalidInput("malformed request body", fields))
		return
	}

	query := parseQuery(c)

	req := orchestrator.BuildRequest{
		Origin: body.Origin, Destination: body.Destination,
		MaxStop: body.MaxStop, StartDate: body.StartDate, EndDate: body.EndDate,
		APIKey: body.APIKey, Cabin: body.Cabin, Carriers: body.Carriers,
		United: body.United, Binbin: body.Binbin, Region: body.Region,
		ClientID:    c.ClientIP(),
		IsPaginated: query.Page > 1 || c.Query("pageSize") != "",
	}
	if body.MinReliabilityPercent != nil {
		req.MinReliabilityPercent = *body.MinReliabilityPercent
	}
	if body.Seats != nil {
		req.Seats = *body.Seats
	}

	resp, err := h.orchestrator.Handle(c.Request.Context(), req, query)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"itineraries":               resp.Itineraries,
		"flights":                   resp.Flights,
		"pricing":                   resp.Pricing,
		"total":                     resp.Total,
		"page":                      resp.Page,
		"pageSize":                  resp.PageSize,
		"minRateLimitRemaining":     resp.MinRateLimitRemaining,
		"minRateLimitReset":         resp.MinRateLimitReset,
		"totalUpstreamHttpRequests": resp.TotalUpstreamHTTPRequests,
		"filterMetadata":            resp.FilterMetadata,
	})
}

// parseQuery reads the filter/sort/paginate query parameters (§6),
// defaulting sortBy to "duration", sortOrder to "asc", page to 1 and
// pageSize to 10.
func parseQuery(c *gin.Context) metadata.Query {
	q := metadata.Query{
		Stops:              csvInts(c.Query("stops")),
		IncludeAirlines:    csvStrings(c.Query("includeAirlines")),
		ExcludeAirlines:    csvStrings(c.Query("excludeAirlines")),
		MaxDuration:        queryIntPtr(c, "maxDuration"),
		MinYPercent:        queryFloatPtr(c, "minYPercent"),
		MinWPercent:        queryFloatPtr(c, "minWPercent"),
		MinJPercent:        queryFloatPtr(c, "minJPercent"),
		MinFPercent:        queryFloatPtr(c, "minFPercent"),
		DepTimeMin:         queryInt64Ptr(c, "depTimeMin"),
		DepTimeMax:         queryInt64Ptr(c, "depTimeMax"),
		ArrTimeMin:         queryInt64Ptr(c, "arrTimeMin"),
		ArrTimeMax:         queryInt64Ptr(c, "arrTimeMax"),
		IncludeOrigin:      csvStrings(c.Query("includeOrigin")),
		IncludeDestination: csvStrings(c.Query("includeDestination")),
		IncludeConnection:  csvStrings(c.Query("includeConnection")),
		ExcludeOrigin:      csvStrings(c.Query("excludeOrigin")),
		ExcludeDestination: csvStrings(c.Query("excludeDestination")),
		ExcludeConnection:  csvStrings(c.Query("excludeConnection")),
		Search:             c.Query("search"),
		SortBy:             queryOr(c, "sortBy", "duration"),
		SortOrder:          queryOr(c, "sortOrder", "asc"),
		Page:               queryIntOr(c, "page", 1),
		PageSize:           queryIntOr(c, "pageSize", 10),
	}
	return q
}

func csvInts(raw string) []int {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func csvStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryOr(c *gin.Context, key, fallback string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return fallback
}

func queryIntOr(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func queryIntPtr(c *gin.Context, key string) *int {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryInt64Ptr(c *gin.Context, key string) *int64 {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func queryFloatPtr(c *gin.Context, key string) *float64 {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &n
}

// writeError maps a handler-level error to the JSON error shape and status
// code spec §6/§7 defines.
func writeError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}

	body := gin.H{"error": appErr.Message, "code": string(appErr.Kind)}
	if len(appErr.Fields) > 0 {
		body["details"] = appErr.Fields
	}
	if appErr.Kind == apperror.KindRateLimited {
		body["retryAfter"] = appErr.RetryAfterSeconds
		body["reason"] = appErr.Reason
	}

	c.JSON(appErr.Status(), body)
}
