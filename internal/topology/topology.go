// Package topology is the route-topology collaborator (spec §6): it asks
// an external service to enumerate candidate O-A-...-B-D waypoint paths
// for a given origin/destination/maxStop, and hands back RouteStructures
// for the rest of the engine to pre-filter and compose over.
//
// Grounded on the teacher's provider client construction: a resty client
// per collaborator with a circuit breaker and bounded retries, built once
// at startup.
package topology

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

const defaultRetryCount = 3

// Request is the body sent to POST {baseUrl}/create-full-route-path.
type Request struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	MaxStop     int    `json:"maxStop"`
	Binbin      bool   `json:"binbin,omitempty"`
	Region      bool   `json:"region,omitempty"`
}

type routeDTO struct {
	Waypoints []string `json:"waypoints"`
	All1      []string `json:"all1"`
	All2      []string `json:"all2"`
	All3      []string `json:"all3"`
}

type response struct {
	Routes         []routeDTO `json:"routes"`
	QueryParamsArr []string   `json:"queryParamsArr"`
	AirportList    []string   `json:"airportList,omitempty"`
}

// Result is the collaborator's parsed output.
type Result struct {
	Routes         []model.RouteStructure
	QueryParamsArr []string
	AirportList    []string
}

// Client calls the route-topology collaborator.
type Client struct {
	http *resty.Client
}

// New builds a Client from the engine's topology collaborator config.
func New(cfg config.CollaboratorConfig) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(retryCount(cfg.Retries)).
			SetCircuitBreaker(resty.NewCircuitBreaker()),
	}
}

func retryCount(configured int) int {
	if configured <= 0 {
		return defaultRetryCount
	}
	return configured
}

// CreateFullRoutePath fetches candidate route structures. Any non-2xx or
// transport failure is request-fatal per §4.13: "upstream route-topology
// 4xx/5xx: fail request with 500".
func (c *Client) CreateFullRoutePath(ctx context.Context, req Request) (Result, error) {
	var res response

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&res).
		Post("/create-full-route-path")
	if err != nil {
		return Result{}, apperror.UpstreamUnavailable(err)
	}

	if resp.StatusCode() >= 300 {
		return Result{}, apperror.UpstreamUnavailable(fmt.Errorf("route-topology request failed: %s", resp.String()))
	}

	routes := make([]model.RouteStructure, 0, len(res.Routes))
	for _, r := range res.Routes {
		routes = append(routes, model.RouteStructure{
			Waypoints: r.Waypoints,
			All1:      r.All1,
			All2:      r.All2,
			All3:      r.All3,
			Region:    req.Region,
		})
	}

	return Result{
		Routes:         routes,
		QueryParamsArr: res.QueryParamsArr,
		AirportList:    res.AirportList,
	}, nil
}
