package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// JobHandler handles download-job HTTP requests
type JobHandler struct {
	manager     *app.JobManager
	defaultDest string
	logger      *zap.Logger
}

// NewJobHandler creates a new job handler. defaultDest is used when a request
// does not name a destination directory.
func NewJobHandler(manager *app.JobManager, defaultDest string, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		manager:     manager,
		defaultDest: defaultDest,
		logger:      logger,
	}
}

// AddJobRequest represents a request to start a download job
type AddJobRequest struct {
	URL            string `json:"url" binding:"required"`
	DestinationDir string `json:"destination_dir,omitempty"`
	Container      string `json:"container,omitempty"`
	Quality        string `json:"quality,omitempty"`
	AudioOnly      bool   `json:"audio_only,omitempty"`
}

// AddJob handles POST /api/v1/jobs
func (h *JobHandler) AddJob(c *gin.Context) {
	var req AddJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dest := req.DestinationDir
	if dest == "" {
		dest = h.defaultDest
	}
	container := domain.Container(req.Container)
	if container == "" {
		container = domain.ContainerMP4
	}
	quality := domain.Quality(req.Quality)
	if quality == "" {
		quality = domain.QualityBest
	}

	job, events, err := h.manager.Submit(domain.DownloadRequest{
		URL:            req.URL,
		DestinationDir: dest,
		Container:      container,
		Quality:        quality,
		AudioOnly:      req.AudioOnly,
	})
	if err != nil {
		h.logger.Error("Failed to submit job", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The job row carries the latest progress for polling clients; the event
	// stream still has to be drained so the runner never stalls on it.
	go func() {
		for range events {
		}
	}()

	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.manager.GetJob(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}

	jobs, err := h.manager.ListJobs(filters)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// GetStats handles GET /api/v1/jobs/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.manager.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelJob handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")

	if err := h.manager.Cancel(id); err != nil {
		h.logger.Error("Failed to cancel job", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cancellation requested"})
}

// DeleteJob handles DELETE /api/v1/jobs/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id := c.Param("id")

	if err := h.manager.DeleteJob(id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}
