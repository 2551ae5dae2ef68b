package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves GET /healthz.
type HealthHandler struct{}

// NewHealthHandler builds the handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Handle reports liveness; it does not probe downstream collaborators,
// matching the teacher's shallow health check.
func (h *HealthHandler) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
