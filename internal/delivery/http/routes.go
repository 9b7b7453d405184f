package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rfpquote/backend/config"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		match := v1.Group("/match")
		{
			match.POST("/search", handler.Search)
			match.POST("/availability", handler.CheckAvailability)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/products", handler.CatalogProducts)
			catalog.POST("/refresh", handler.RefreshCatalog)
		}
	}

	return router
}
