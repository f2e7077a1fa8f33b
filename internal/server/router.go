package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/habitlink/habitlink-backend/internal/handlers"
	"github.com/habitlink/habitlink-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	MatchingHandler *handlers.MatchingHandler
	ServiceName     string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	matching := protected.Group("/matching")
	matching.GET("/recommendations", cfg.MatchingHandler.GetRecommendedUsers)
	matching.POST("/recommendations/compute", cfg.MatchingHandler.ComputeRecommendations)
	matching.POST("/recommendations/outdated", cfg.MatchingHandler.MarkRecommendationsOutdated)
	matching.DELETE("/recommendations", cfg.MatchingHandler.DeleteRecommendations)
	matching.POST("/plans/:id/reindex", cfg.MatchingHandler.ReindexPlan)

	return router
}
