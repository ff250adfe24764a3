package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"funnel_dashboard_backend/internal/deals/domain"
	"funnel_dashboard_backend/platform/apperr"
	"funnel_dashboard_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type fakeDealStore struct {
	upserts []domain.Patch
	deletes []int64
}

func (f *fakeDealStore) Upsert(_ context.Context, patch domain.Patch) error {
	f.upserts = append(f.upserts, patch)
	return nil
}

func (f *fakeDealStore) Delete(_ context.Context, id int64) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func newTestService(store *fakeDealStore) *Service {
	return NewService(store, logger.New("development"))
}

func TestProcess_CreateAndUpdateActions(t *testing.T) {
	store := &fakeDealStore{}
	svc := newTestService(store)
	deal := &DealPayload{ID: "10", Title: "Casamento"}

	action, id, err := svc.Process(context.Background(), Notification{Type: "deal_add", Deal: deal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != ActionCreated || id != 10 {
		t.Fatalf("add: action %q id %d", action, id)
	}

	action, _, err = svc.Process(context.Background(), Notification{Type: "deal.update", Deal: deal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != ActionUpdated {
		t.Fatalf("update: action %q", action)
	}
	if len(store.upserts) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(store.upserts))
	}
}

func TestProcess_DeleteIsIdempotent(t *testing.T) {
	store := &fakeDealStore{}
	svc := newTestService(store)
	n := Notification{Type: "deal_delete", Deal: &DealPayload{ID: "77"}}

	for i := 0; i < 2; i++ {
		action, id, err := svc.Process(context.Background(), n)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if action != ActionDeleted || id != 77 {
			t.Fatalf("run %d: action %q id %d", i, action, id)
		}
	}
	if len(store.deletes) != 2 {
		t.Fatalf("expected 2 delete calls, got %d", len(store.deletes))
	}
}

func TestProcess_UnknownTypeIsIgnored(t *testing.T) {
	svc := newTestService(&fakeDealStore{})

	action, _, err := svc.Process(context.Background(), Notification{Type: "contact_add"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != ActionIgnored {
		t.Fatalf("action: %q", action)
	}
}

func TestProcess_MissingIDIsBadRequest(t *testing.T) {
	svc := newTestService(&fakeDealStore{})

	_, _, err := svc.Process(context.Background(), Notification{Type: "deal_delete", Deal: &DealPayload{}})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}

	_, _, err = svc.Process(context.Background(), Notification{Type: "deal_add", Deal: &DealPayload{ID: "abc"}})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func newTestRouter(store *fakeDealStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(newTestService(store))
	passthrough := func(c *gin.Context) { c.Next() }
	handler.RegisterRoutes(engine.Group("/api/v1"), passthrough, passthrough)
	return engine
}

func TestReceive_FormEncodedNotification(t *testing.T) {
	store := &fakeDealStore{}
	router := newTestRouter(store)

	form := "type=deal_add&deal%5Bid%5D=55&deal%5Btitle%5D=Casamento+Ana"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/activecampaign", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["action"] != "created" || resp["success"] != true {
		t.Fatalf("response: %v", resp)
	}
	if len(store.upserts) != 1 || store.upserts[0].ID != 55 {
		t.Fatalf("upserts: %+v", store.upserts)
	}
}

func TestReceive_IgnoredTypeEchoesType(t *testing.T) {
	router := newTestRouter(&fakeDealStore{})

	body := bytes.NewReader([]byte(`{"type":"contact_add"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/activecampaign", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["action"] != "ignored" || resp["type"] != "contact_add" {
		t.Fatalf("response: %v", resp)
	}
}

func TestProbe(t *testing.T) {
	router := newTestRouter(&fakeDealStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhook/activecampaign", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "activecampaign-webhook") {
		t.Fatalf("body: %s", rec.Body.String())
	}
}
