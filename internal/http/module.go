// Package http provides HTTP server infrastructure including the Module
// interface that all domain modules implement for route registration.
package http

import (
	"funnel_dashboard_backend/platform/httpkit"
	"funnel_dashboard_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
// This avoids passing many parameters to each module's RegisterRoutes method.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Admin is the JWT-protected route group under /api/v1/admin.
	Admin *gin.RouterGroup
	// WebhookAuth validates the shared CRM webhook token.
	WebhookAuth gin.HandlerFunc
	// WebhookRateLimiter throttles unauthenticated webhook traffic per IP.
	WebhookRateLimiter *httpkit.IPRateLimiter
	// Logger is the structured logger.
	Logger *logger.Logger
}
