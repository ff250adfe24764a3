package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel_dashboard_backend/internal/activecampaign"
	"funnel_dashboard_backend/internal/cleanup"
	dealrepo "funnel_dashboard_backend/internal/deals/repository"
	"funnel_dashboard_backend/internal/funnel"
	apphttp "funnel_dashboard_backend/internal/http"
	"funnel_dashboard_backend/internal/http/router"
	"funnel_dashboard_backend/internal/reports"
	"funnel_dashboard_backend/internal/webhook"
	"funnel_dashboard_backend/platform/config"
	"funnel_dashboard_backend/platform/db"
	"funnel_dashboard_backend/platform/logger"
	"funnel_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Shared validator instance for dependency injection
	val := validator.New()

	units := loadUnits(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	deals := dealrepo.New(pool)

	webhookModule := webhook.NewModule(deals, log)
	reportsModule := reports.NewModule(pool, deals, units, val, log)

	modules := []apphttp.Module{
		webhookModule,
		reportsModule,
	}

	// Cleanup verifies deals against ActiveCampaign, so it only runs when
	// the AC API is configured.
	if cfg.IsACEnabled() {
		acClient := activecampaign.New(cfg)
		cleanupModule, err := cleanup.NewModule(deals, acClient, cfg, log)
		if err != nil {
			log.Error("failed to initialize cleanup module", "error", err)
			panic("failed to initialize cleanup module: " + err.Error())
		}
		defer func() { _ = cleanupModule.Locker().Close() }()
		modules = append(modules, cleanupModule)
		log.Info("cleanup module initialized", "acURL", cfg.GetACAPIURL())
	} else {
		log.Warn("ActiveCampaign API not configured; cleanup endpoints disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  db.NewPoolAdapter(pool),
		Modules: modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func loadUnits(cfg config.FunnelConfig, log *logger.Logger) funnel.Units {
	path := cfg.GetFunnelUnitsFile()
	if path == "" {
		return funnel.Defaults()
	}

	units, err := funnel.LoadUnits(path)
	if err != nil {
		log.Warn("failed to load funnel units file, using defaults", "path", path, "error", err)
		return funnel.Defaults()
	}
	log.Info("funnel units loaded", "path", path)
	return units
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
