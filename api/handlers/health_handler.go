package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidgrab-go/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	manager *app.JobManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager *app.JobManager) *HealthHandler {
	return &HealthHandler{
		manager: manager,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Engine  struct {
		ActiveJobs int `json:"active_jobs"`
	} `json:"engine"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Engine.ActiveJobs = h.manager.ActiveCount()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := h.manager.GetStats(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "job store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
