package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/api/handlers"
	"github.com/makedealcrm/dealstack/api/middleware"
	"github.com/makedealcrm/dealstack/internal/repository"
	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))
	r.Use(middleware.RequestIDMiddleware())

	// setup handlers
	apiHandlers := handlers.InitHandlers(repos, s)

	// Health check endpoint (no custom context needed)
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-DEALSTACK-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version and custom context
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware("dealstack"))
	api.Use(middleware.TracingMiddleware())
	{
		// Email ingestion
		emails := api.Group("/emails")
		{
			emails.POST("/ingest", apiHandlers.Ingest.IngestEmail())
		}

		// Deal endpoints
		deals := api.Group("/deals")
		{
			deals.GET("/:id", apiHandlers.Deals.GetDeal())
			deals.GET("/:id/notes", apiHandlers.Deals.ListDealNotes())
		}

		// Thread endpoints
		threads := api.Group("/threads")
		{
			threads.GET("/:id/summary", apiHandlers.Threads.GetThreadSummary())
		}
	}
}
