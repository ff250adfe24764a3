package webhook

import (
	apphttp "funnel_dashboard_backend/internal/http"
	"funnel_dashboard_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the notification pipeline against the deal store.
func NewModule(store DealStore, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(NewService(store, log)),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the webhook routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1, ctx.WebhookAuth, ctx.WebhookRateLimiter.Middleware())
}
