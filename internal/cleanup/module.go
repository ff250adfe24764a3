package cleanup

import (
	apphttp "funnel_dashboard_backend/internal/http"
	"funnel_dashboard_backend/platform/config"
	"funnel_dashboard_backend/platform/logger"
)

// Module is the cleanup bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	job     *Job
	locker  *Locker
}

// NewModule wires the reconciliation job, its Redis lock and the admin
// trigger endpoint.
func NewModule(store DealStore, crm CRM, cfg config.CleanupConfig, log *logger.Logger) (*Module, error) {
	locker, err := NewLocker(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	job := NewJob(store, crm, cfg, log)
	return &Module{
		handler: NewHandler(job, locker, log),
		job:     job,
		locker:  locker,
	}, nil
}

// Job exposes the batch runner for the scheduler worker.
func (m *Module) Job() *Job { return m.job }

// Locker exposes the Redis lock for the scheduler worker.
func (m *Module) Locker() *Locker { return m.locker }

// Name returns the module identifier.
func (m *Module) Name() string { return "cleanup" }

// RegisterRoutes mounts the cleanup routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}
