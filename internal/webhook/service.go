package webhook

import (
	"context"
	"strconv"
	"strings"

	"funnel_dashboard_backend/internal/deals/domain"
	"funnel_dashboard_backend/platform/apperr"
	"funnel_dashboard_backend/platform/logger"
)

// Actions reported back to the CRM.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionIgnored = "ignored"
)

// DealStore is the slice of the deal repository the webhook needs.
type DealStore interface {
	Upsert(ctx context.Context, patch domain.Patch) error
	Delete(ctx context.Context, id int64) error
}

// Service applies decoded notifications to the deal store.
type Service struct {
	store DealStore
	log   *logger.Logger
}

// NewService creates the webhook service.
func NewService(store DealStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Process applies one notification. It returns the action taken and the
// deal ID. Unknown notification types are acknowledged as ignored so the
// CRM does not retry them forever.
func (s *Service) Process(ctx context.Context, n Notification) (string, int64, error) {
	switch {
	case isDeleteType(n.Type):
		return s.processDelete(ctx, n)
	case isUpsertType(n.Type):
		return s.processUpsert(ctx, n)
	default:
		s.log.WebhookEvent(ActionIgnored, 0, n.Type)
		return ActionIgnored, 0, nil
	}
}

func (s *Service) processDelete(ctx context.Context, n Notification) (string, int64, error) {
	if n.Deal == nil || strings.TrimSpace(n.Deal.ID) == "" {
		return "", 0, apperr.BadRequest("missing deal ID").WithOp("webhook.delete")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(n.Deal.ID), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, apperr.BadRequest("invalid deal ID").WithOp("webhook.delete")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return "", 0, apperr.Wrap(apperr.KindInternal, "failed to delete deal", err).WithOp("webhook.delete")
	}

	s.log.WebhookEvent(ActionDeleted, id, n.Type)
	return ActionDeleted, id, nil
}

func (s *Service) processUpsert(ctx context.Context, n Notification) (string, int64, error) {
	if n.Deal == nil {
		return "", 0, apperr.BadRequest("missing deal data").WithOp("webhook.upsert")
	}

	patch, ok := BuildPatch(*n.Deal)
	if !ok {
		return "", 0, apperr.BadRequest("missing or invalid deal ID").WithOp("webhook.upsert")
	}

	if err := s.store.Upsert(ctx, patch); err != nil {
		return "", 0, apperr.Wrap(apperr.KindInternal, "failed to upsert deal", err).WithOp("webhook.upsert")
	}

	action := ActionUpdated
	if strings.Contains(n.Type, "add") {
		action = ActionCreated
	}
	s.log.WebhookEvent(action, patch.ID, n.Type)
	return action, patch.ID, nil
}

func isDeleteType(t string) bool {
	return t == "deal_delete" || t == "deal.delete"
}

func isUpsertType(t string) bool {
	switch t {
	case "deal_add", "deal.add", "deal_update", "deal.update":
		return true
	}
	return false
}
