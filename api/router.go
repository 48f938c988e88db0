package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/api/handlers"
	"github.com/yourusername/vidgrab-go/api/middleware"
	"github.com/yourusername/vidgrab-go/internal/app"
	"github.com/yourusername/vidgrab-go/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(manager *app.JobManager, config *domain.Config, log *zap.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(manager)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		jobHandler := handlers.NewJobHandler(manager, config.Engine.DestinationDir, log)
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.AddJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/stats", jobHandler.GetStats)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.POST("/:id/cancel", jobHandler.CancelJob)
			jobs.DELETE("/:id", jobHandler.DeleteJob)
		}
	}

	return router
}
