package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driversheet/mailworker/api/handlers"
	"github.com/driversheet/mailworker/api/middleware"
	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/repository"
	"github.com/driversheet/mailworker/internal/tracing"
)

const AppSource = "mailworker-api"

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, cfg *config.Config, log logger.Logger, repos *repository.Repositories) {
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery
	r.Use(middleware.CORSMiddleware())

	apiHandlers := handlers.InitHandlers(cfg, log, repos)

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.CustomContextMiddleware(AppSource))
	api.Use(middleware.TracingMiddleware())
	{
		// signed with the webhook secret instead of the API key
		api.POST("/lemon-webhook", apiHandlers.Lemon.Webhook())

		users := api.Group("/users")
		users.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
			HeaderName:  "Authorization",
			Scheme:      "Bearer",
			ValidAPIKey: cfg.AppConfig.APIKey,
		}))
		{
			users.POST("", apiHandlers.Users.Upsert())
			users.GET("/:id/logs", apiHandlers.Users.ListLogs())
		}
	}
}
