package routes

import (
	"user-webhook-sync/handlers"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo, webhookHandler *handlers.WebhookHandler, healthHandler *handlers.HealthHandler) {
	e.GET("/", handlers.Home)
	e.POST("/api/webhooks", webhookHandler.Receive)

	e.GET("/health", healthHandler.Health)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/health/live", healthHandler.Liveness)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
