package router

import (
	"net/http"

	"github.com/crosslist/crosslist-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "crosslist-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	workerHandler := handler.NewWorkerHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Dispatch a cross-listing job
			jobs.POST("", jobHandler.Dispatch)

			// GET /api/v1/jobs - Cross-listing history
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Status read for the client poller
			jobs.GET("/:job_id", jobHandler.GetJobStatus)
		}

		// Extension-facing protocol
		worker := v1.Group("/worker")
		{
			worker.POST("/claim", workerHandler.Claim)
			worker.POST("/report", workerHandler.Report)
			worker.POST("/heartbeat", workerHandler.Heartbeat)
		}

		// DELETE /api/v1/listings/:listing_id/platforms/:platform - Delist
		v1.DELETE("/listings/:listing_id/platforms/:platform", jobHandler.Delist)
	}

	return r
}
