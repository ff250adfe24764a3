package scheduler

import (
	"context"
	"fmt"

	"funnel_dashboard_backend/internal/cleanup"
	"funnel_dashboard_backend/platform/config"
	"funnel_dashboard_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes reconciliation tasks. Each task verifies one batch and
// re-enqueues itself with the next cursor until the scan is done, so a full
// run never holds a worker slot for the whole table.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	client    *Client
	job       *cleanup.Job
	locker    *cleanup.Locker
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, job *cleanup.Job, locker *cleanup.Locker, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	sched := asynq.NewScheduler(opt, nil)
	initial, err := NewDealsCleanupTask(DealsCleanupPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := sched.Register(cfg.GetCleanupCron(), initial, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register cleanup cron: %w", err)
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: sched,
		mux:       mux,
		client:    client,
		job:       job,
		locker:    locker,
		log:       log,
	}

	mux.HandleFunc(TaskDealsCleanup, w.handleDealsCleanup)

	return w, nil
}

func (w *Worker) handleDealsCleanup(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDealsCleanupPayload(task)
	if err != nil {
		return err
	}

	// The first batch of a run takes the lock; a concurrent manual run wins
	// and this scheduled run just skips the night. Follow-up batches refresh
	// the TTL so a sweep longer than the lock lifetime never loses exclusion.
	if payload.Cursor == 0 {
		acquired, err := w.locker.Acquire(ctx)
		if err != nil {
			return err
		}
		if !acquired {
			w.log.Info("cleanup run already in progress, skipping scheduled run")
			return nil
		}
	} else {
		refreshed, err := w.locker.Refresh(ctx)
		if err != nil {
			return err
		}
		if !refreshed {
			w.log.Warn("cleanup lock expired mid-run, abandoning sweep", "cursor", payload.Cursor)
			return nil
		}
	}

	result, err := w.job.Run(ctx, payload.Cursor, payload.Limit)
	if err != nil {
		if relErr := w.locker.Release(ctx); relErr != nil {
			w.log.Error("failed to release cleanup lock", "error", relErr)
		}
		return err
	}

	if result.Done {
		if err := w.locker.Release(ctx); err != nil {
			w.log.Error("failed to release cleanup lock", "error", err)
		}
		return nil
	}

	return w.client.EnqueueDealsCleanup(ctx, DealsCleanupPayload{
		Cursor: result.NextCursor,
		Limit:  payload.Limit,
	})
}

// Run starts the cron scheduler and the task server, blocking until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("cleanup cron scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
