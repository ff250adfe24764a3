package cleanup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"funnel_dashboard_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func newCleanupRouter(job *Job, locker *Locker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(job, locker, logger.New("development"))
	handler.RegisterRoutes(engine.Group("/api/v1/admin"))
	return engine
}

func TestRunBatch_NullCursorWhenDone(t *testing.T) {
	store := &fakeStore{ids: []int64{1, 2, 3}}
	crm := &fakeCRM{deals: map[int64]crmDeal{
		1: {title: "Casamento Ana"},
		2: {title: "Casamento Rita"},
		3: {title: "Casamento Paula"},
	}}
	router := newCleanupRouter(newTestJob(store, crm), newTestLocker(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/deals/cleanup", strings.NewReader(`{"limit":20}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["done"] != true {
		t.Fatalf("expected done, got %v", resp)
	}
	if cursor, present := resp["nextCursor"]; !present || cursor != nil {
		t.Fatalf("nextCursor must be null when done, got %v", cursor)
	}
}

func TestRunBatch_CursorAdvancesOnFullPage(t *testing.T) {
	ids := make([]int64, 25)
	deals := map[int64]crmDeal{}
	for i := range ids {
		ids[i] = int64(i + 1)
		deals[int64(i+1)] = crmDeal{title: "Casamento"}
	}
	router := newCleanupRouter(newTestJob(&fakeStore{ids: ids}, &fakeCRM{deals: deals}), newTestLocker(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/deals/cleanup", strings.NewReader(`{"limit":20}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["done"] != false {
		t.Fatalf("a full page must not finish the run: %v", resp)
	}
	if cursor, ok := resp["nextCursor"].(float64); !ok || cursor != 20 {
		t.Fatalf("nextCursor: got %v, want 20", resp["nextCursor"])
	}
}

func TestRunBatch_ConflictWhileLockHeld(t *testing.T) {
	locker := newTestLocker(t)
	router := newCleanupRouter(newTestJob(&fakeStore{}, &fakeCRM{}), locker)

	if acquired, err := locker.Acquire(context.Background()); err != nil || !acquired {
		t.Fatalf("setup acquire: %v %v", acquired, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/deals/cleanup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRunBatch_ReleasesLockAfterRun(t *testing.T) {
	locker := newTestLocker(t)
	router := newCleanupRouter(newTestJob(&fakeStore{}, &fakeCRM{}), locker)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/deals/cleanup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if acquired, err := locker.Acquire(context.Background()); err != nil || !acquired {
		t.Fatalf("lock must be free after the batch: %v %v", acquired, err)
	}
}
