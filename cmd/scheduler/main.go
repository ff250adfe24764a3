package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel_dashboard_backend/internal/activecampaign"
	"funnel_dashboard_backend/internal/cleanup"
	dealrepo "funnel_dashboard_backend/internal/deals/repository"
	"funnel_dashboard_backend/internal/scheduler"
	"funnel_dashboard_backend/platform/config"
	"funnel_dashboard_backend/platform/db"
	"funnel_dashboard_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if !cfg.IsACEnabled() {
		panic("scheduler requires ActiveCampaign API configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	deals := dealrepo.New(pool)
	acClient := activecampaign.New(cfg)
	job := cleanup.NewJob(deals, acClient, cfg, log)

	locker, err := cleanup.NewLocker(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to initialize cleanup locker", "error", err)
		panic("failed to initialize cleanup locker: " + err.Error())
	}
	defer func() { _ = locker.Close() }()

	worker, err := scheduler.NewWorker(cfg, job, locker, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
