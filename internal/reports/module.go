// Package reports provides the funnel reporting bounded context module.
package reports

import (
	"funnel_dashboard_backend/internal/funnel"
	apphttp "funnel_dashboard_backend/internal/http"
	"funnel_dashboard_backend/internal/reports/handler"
	"funnel_dashboard_backend/internal/reports/repository"
	"funnel_dashboard_backend/internal/reports/service"
	"funnel_dashboard_backend/platform/logger"
	"funnel_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reports bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the report service against the deal store, the monthly
// targets table and the ad spend cache.
func NewModule(pool *pgxpool.Pool, deals service.DealSource, units funnel.Units, val *validator.Validator, log *logger.Logger) *Module {
	targets := repository.NewTargets(pool)
	spend := repository.NewAdSpend(pool)
	svc := service.New(deals, targets, spend, units, log)

	return &Module{
		handler: handler.New(svc, targets, spend, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "reports" }

// RegisterRoutes mounts the report routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1, ctx.Admin)
}
