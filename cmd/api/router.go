package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cleaning-backend/internal/shared/middleware"
	"cleaning-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	checks := []healthCheck{
		{name: "database", critical: true, ping: c.DB.HealthCheck},
		{name: "redis", ping: c.Cache.Ping},
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c.Config.App.Version, checks))

		setupWebhookRoutes(v1, c)
		setupCatalogRoutes(v1, c)
		setupOrderRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

// ========================================
// WEBHOOK ROUTES
// ========================================
// Authenticated by the gateway signature, not by JWT.
func setupWebhookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	c.OrderHandler.RegisterWebhookRoutes(v1)
}

// ========================================
// CATALOG ROUTES
// ========================================
func setupCatalogRoutes(v1 *gin.RouterGroup, c *container.Container) {
	c.CatalogHandler.RegisterRoutes(v1)
}

// ========================================
// ORDER ROUTES
// ========================================
func setupOrderRoutes(v1 *gin.RouterGroup, c *container.Container) {
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(c.JWTManager))
	c.OrderHandler.RegisterRoutes(protected)
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	c.OrderHandler.RegisterAdminRoutes(admin)
	c.CatalogHandler.RegisterAdminRoutes(admin)
}

// ========================================
// HEALTH CHECK
// ========================================

type healthCheck struct {
	name string
	// a failing critical dependency turns the response into 503
	critical bool
	ping     func(ctx context.Context) error
}

func healthCheckHandler(version string, checks []healthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		statusCode := http.StatusOK
		services := gin.H{}

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := check.ping(ctx)
			cancel()

			if err == nil {
				services[check.name] = "ok"
				continue
			}

			services[check.name] = "error: " + err.Error()
			status = "degraded"
			if check.critical {
				statusCode = http.StatusServiceUnavailable
			}
		}

		c.JSON(statusCode, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"services":  services,
		})
	}
}
