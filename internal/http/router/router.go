// Package router wires middleware, health checks and domain modules into
// a single Gin engine.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "funnel_dashboard_backend/internal/http"
	"funnel_dashboard_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the Gin engine with the global middleware chain and registers
// every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := app.Health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	admin := v1.Group("/admin")
	admin.Use(httpkit.JWTAuth(app.Config))

	webhookLimiter := httpkit.NewIPRateLimiter(rate.Limit(5), 10, app.Logger)

	ctx := &apphttp.RouterContext{
		Engine:             engine,
		V1:                 v1,
		Admin:              admin,
		WebhookAuth:        httpkit.SharedTokenAuth(app.Config.GetWebhookToken()),
		WebhookRateLimiter: webhookLimiter,
		Logger:             app.Logger,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Info("registered module routes", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-Webhook-Token"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return corsCfg
}
