package cleanup

import (
	"context"
	"errors"
	"sync"
	"time"

	"funnel_dashboard_backend/internal/activecampaign"
	"funnel_dashboard_backend/platform/config"
	"funnel_dashboard_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// DealStore is the slice of the deal repository the job needs.
type DealStore interface {
	ScanIDsAfter(ctx context.Context, cursor int64, limit int) ([]int64, error)
	Delete(ctx context.Context, id int64) error
}

// CRM verifies deals against the source system.
type CRM interface {
	GetDeal(ctx context.Context, id int64) (activecampaign.Deal, error)
	GetDealCustomFields(ctx context.Context, id int64) (map[string]string, error)
}

// DeletedDeal records one removal and why it happened.
type DeletedDeal struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// Result summarizes one cleanup batch.
type Result struct {
	Done         bool          `json:"done"`
	NextCursor   int64         `json:"nextCursor"`
	Processed    int           `json:"processed"`
	Deleted      int           `json:"deleted"`
	Kept         int           `json:"kept"`
	Errors       int           `json:"errors"`
	DeletedDeals []DeletedDeal `json:"deletedDeals"`
}

// Job runs cursor-paged reconciliation batches.
type Job struct {
	store DealStore
	crm   CRM
	cfg   config.CleanupConfig
	log   *logger.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewJob creates a reconciliation job.
func NewJob(store DealStore, crm CRM, cfg config.CleanupConfig, log *logger.Logger) *Job {
	return &Job{
		store: store,
		crm:   crm,
		cfg:   cfg,
		log:   log,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// Run processes one batch starting after cursor. Verification runs with
// bounded concurrency; deletions are applied only after the whole batch has
// been verified. A verification error keeps the record.
func (j *Job) Run(ctx context.Context, cursor int64, limit int) (Result, error) {
	if limit <= 0 {
		limit = j.cfg.GetCleanupBatchSize()
	}
	if max := j.cfg.GetCleanupBatchSizeMax(); limit > max {
		limit = max
	}

	ids, err := j.store.ScanIDsAfter(ctx, cursor, limit)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Done:       len(ids) < limit,
		NextCursor: cursor,
	}
	if len(ids) == 0 {
		return result, nil
	}
	result.NextCursor = ids[len(ids)-1]

	verdicts := j.verifyAll(ctx, ids, &result)

	for _, id := range ids {
		v, ok := verdicts[id]
		if !ok {
			continue
		}
		if !v.Delete {
			result.Kept++
			continue
		}
		if err := j.store.Delete(ctx, id); err != nil {
			j.log.DatabaseError("cleanup delete", err)
			result.Errors++
			continue
		}
		result.Deleted++
		result.DeletedDeals = append(result.DeletedDeals, DeletedDeal{ID: id, Reason: v.Reason})
	}

	j.log.CleanupBatch(result.NextCursor, result.Processed, result.Deleted, result.Kept, result.Errors, result.Done)
	return result, nil
}

// verifyAll checks each ID against the CRM in chunks, pausing between
// chunks so batch runs stay gentle on the API.
func (j *Job) verifyAll(ctx context.Context, ids []int64, result *Result) map[int64]Verdict {
	concurrency := j.cfg.GetCleanupConcurrency()
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex
	verdicts := make(map[int64]Verdict, len(ids))

	for start := 0; start < len(ids); start += concurrency {
		end := start + concurrency
		if end > len(ids) {
			end = len(ids)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(concurrency)
		for _, id := range ids[start:end] {
			id := id
			group.Go(func() error {
				verdict, err := j.verify(groupCtx, id)
				mu.Lock()
				defer mu.Unlock()
				result.Processed++
				if err != nil {
					// Fail closed: an unverifiable record is kept.
					result.Errors++
					verdicts[id] = keep()
					j.log.Error("cleanup verification failed", "dealId", id, "error", err)
					return nil
				}
				verdicts[id] = verdict
				return nil
			})
		}
		_ = group.Wait()

		if end < len(ids) {
			j.sleep(ctx, j.cfg.GetCleanupChunkDelay())
		}
	}
	return verdicts
}

func (j *Job) verify(ctx context.Context, id int64) (Verdict, error) {
	deal, err := j.crm.GetDeal(ctx, id)
	if errors.Is(err, activecampaign.ErrDealNotFound) {
		return remove("não existe no AC"), nil
	}
	if err != nil {
		return Verdict{}, err
	}

	// A failed custom-field fetch degrades to an empty field set; the title
	// check still applies.
	fields, err := j.crm.GetDealCustomFields(ctx, id)
	if err != nil {
		fields = nil
	}

	lossReason := fields[j.cfg.GetLossReasonFieldID()]
	disqualReason := fields[j.cfg.GetDisqualReasonFieldID()]
	return evaluate(deal.Title, lossReason, disqualReason), nil
}
