package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/metrics"
)

// RouteMetricsHandler serves the debug endpoint GET /internal/route-metrics
// (§6's route_metrics table, surfaced read-only for operational visibility).
type RouteMetricsHandler struct {
	store  *metrics.Store
	logger logging.Logger
}

// NewRouteMetricsHandler builds the handler.
func NewRouteMetricsHandler(store *metrics.Store, logger logging.Logger) *RouteMetricsHandler {
	return &RouteMetricsHandler{store: store, logger: logger.With("component", "route_metrics_handler")}
}

// Handle returns the top N most-requested routes (default 20).
func (h *RouteMetricsHandler) Handle(c *gin.Context) {
	n := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}

	top, err := h.store.Top(c.Request.Context(), n)
	if err != nil {
		h.logger.Error("route metrics query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load route metrics", "code": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"routes": top})
}
