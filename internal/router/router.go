package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quoteflow/internal/handler"
	"quoteflow/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health     *handler.HealthHandler
	Provider   *handler.ProviderHandler
	Extraction *handler.ExtractionHandler
	Metrics    http.Handler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(logger *zap.Logger, allowedOrigins []string, h Handlers) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := r.Group("/api/v1")

	v1.GET("/providers", h.Provider.List)

	extractions := v1.Group("/extractions")
	extractions.POST("", h.Extraction.Create)
	extractions.GET("", h.Extraction.List)
	extractions.POST("/compare", h.Extraction.Compare)
	extractions.GET("/:id", h.Extraction.GetByID)
	extractions.POST("/:id/approve", h.Extraction.Approve)
	extractions.POST("/:id/reject", h.Extraction.Reject)
	extractions.GET("/:id/export", h.Extraction.Export)

	return r
}
