package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"funnel_dashboard_backend/internal/activecampaign"
	"funnel_dashboard_backend/platform/logger"
)

type fakeStore struct {
	mu      sync.Mutex
	ids     []int64
	deleted []int64
	scans   int
}

func (f *fakeStore) ScanIDsAfter(_ context.Context, cursor int64, limit int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	var page []int64
	for _, id := range f.ids {
		if id > cursor {
			page = append(page, id)
		}
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type crmDeal struct {
	title         string
	lossReason    string
	disqualReason string
}

type fakeCRM struct {
	deals     map[int64]crmDeal
	dealErr   map[int64]error
	fieldsErr map[int64]error
}

func (f *fakeCRM) GetDeal(_ context.Context, id int64) (activecampaign.Deal, error) {
	if err := f.dealErr[id]; err != nil {
		return activecampaign.Deal{}, err
	}
	d, ok := f.deals[id]
	if !ok {
		return activecampaign.Deal{}, activecampaign.ErrDealNotFound
	}
	return activecampaign.Deal{ID: "x", Title: d.title}, nil
}

func (f *fakeCRM) GetDealCustomFields(_ context.Context, id int64) (map[string]string, error) {
	if err := f.fieldsErr[id]; err != nil {
		return nil, err
	}
	d := f.deals[id]
	return map[string]string{"2": d.lossReason, "303": d.disqualReason}, nil
}

type jobConfig struct {
	batchSize int
	maxSize   int
}

func (c jobConfig) GetCleanupBatchSize() int            { return c.batchSize }
func (c jobConfig) GetCleanupBatchSizeMax() int         { return c.maxSize }
func (c jobConfig) GetCleanupConcurrency() int          { return 5 }
func (c jobConfig) GetCleanupChunkDelay() time.Duration { return time.Millisecond }
func (c jobConfig) GetLossReasonFieldID() string        { return "2" }
func (c jobConfig) GetDisqualReasonFieldID() string     { return "303" }
func (c jobConfig) GetRedisURL() string                 { return "" }

func newTestJob(store *fakeStore, crm *fakeCRM) *Job {
	job := NewJob(store, crm, jobConfig{batchSize: 20, maxSize: 30}, logger.New("development"))
	job.sleep = func(context.Context, time.Duration) {}
	return job
}

func TestRun_DeletesMissingAndFlaggedDeals(t *testing.T) {
	store := &fakeStore{ids: []int64{1, 2, 3}}
	crm := &fakeCRM{deals: map[int64]crmDeal{
		// Deal 1 is gone from the CRM (not in the map).
		2: {title: "Teste de integração"},
		3: {title: "Casamento Ana"},
	}}
	job := newTestJob(store, crm)

	result, err := job.Run(context.Background(), 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Processed != 3 || result.Deleted != 2 || result.Kept != 1 || result.Errors != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if !result.Done {
		t.Fatal("a short page must finish the run")
	}

	reasons := map[int64]string{}
	for _, d := range result.DeletedDeals {
		reasons[d.ID] = d.Reason
	}
	if reasons[1] != "não existe no AC" {
		t.Fatalf("deal 1 reason: %q", reasons[1])
	}
	if reasons[2] != "título contém teste" {
		t.Fatalf("deal 2 reason: %q", reasons[2])
	}
	if len(store.deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %v", store.deleted)
	}
}

func TestRun_KeepsDealOnLookupError(t *testing.T) {
	store := &fakeStore{ids: []int64{1, 2}}
	crm := &fakeCRM{
		deals:   map[int64]crmDeal{2: {title: "Casamento Ana"}},
		dealErr: map[int64]error{1: errors.New("upstream timeout")},
	}
	job := newTestJob(store, crm)

	result, err := job.Run(context.Background(), 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deleted != 0 || result.Kept != 2 || result.Errors != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("nothing should be deleted, got %v", store.deleted)
	}
}

func TestRun_ChecksTitleWhenCustomFieldsFail(t *testing.T) {
	store := &fakeStore{ids: []int64{1, 2}}
	crm := &fakeCRM{
		deals: map[int64]crmDeal{
			1: {title: "teste de fluxo", lossReason: "teste"},
			2: {title: "Casamento Ana", lossReason: "teste"},
		},
		fieldsErr: map[int64]error{
			1: errors.New("upstream timeout"),
			2: errors.New("upstream timeout"),
		},
	}
	job := newTestJob(store, crm)

	result, err := job.Run(context.Background(), 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Deal 1 goes on its title alone; deal 2 survives because its field
	// values were unreadable.
	if result.Deleted != 1 || result.Kept != 1 || result.Errors != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.DeletedDeals) != 1 || result.DeletedDeals[0].ID != 1 {
		t.Fatalf("unexpected deletions: %+v", result.DeletedDeals)
	}
	if result.DeletedDeals[0].Reason != "título contém teste" {
		t.Fatalf("deal 1 reason: %q", result.DeletedDeals[0].Reason)
	}
}

func TestRun_PagesWithCursorUntilDone(t *testing.T) {
	ids := make([]int64, 45)
	deals := map[int64]crmDeal{}
	for i := range ids {
		ids[i] = int64(i + 1)
		deals[int64(i+1)] = crmDeal{title: "Casamento"}
	}
	store := &fakeStore{ids: ids}
	job := newTestJob(store, &fakeCRM{deals: deals})

	var cursor int64
	calls := 0
	for {
		result, err := job.Run(context.Background(), cursor, 20)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		calls++
		cursor = result.NextCursor
		if result.Done {
			break
		}
		if calls > 10 {
			t.Fatal("run never finished")
		}
	}

	// 45 records at 20 per batch: two full pages plus a short third page.
	if calls != 3 {
		t.Fatalf("expected 3 batches, got %d", calls)
	}
	if cursor != 45 {
		t.Fatalf("final cursor: got %d, want 45", cursor)
	}
}

func TestRun_ClampsLimitToMax(t *testing.T) {
	ids := make([]int64, 40)
	deals := map[int64]crmDeal{}
	for i := range ids {
		ids[i] = int64(i + 1)
		deals[int64(i+1)] = crmDeal{title: "Casamento"}
	}
	store := &fakeStore{ids: ids}
	job := newTestJob(store, &fakeCRM{deals: deals})

	result, err := job.Run(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 30 {
		t.Fatalf("limit not clamped: processed %d", result.Processed)
	}
	if result.Done {
		t.Fatal("a full page must not finish the run")
	}
}

func TestRun_EmptyPageFinishesImmediately(t *testing.T) {
	store := &fakeStore{}
	job := newTestJob(store, &fakeCRM{})

	result, err := job.Run(context.Background(), 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Done || result.Processed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.NextCursor != 100 {
		t.Fatalf("cursor must not move on an empty page, got %d", result.NextCursor)
	}
}
