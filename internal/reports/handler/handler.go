// Package handler exposes the funnel report and goal seeding endpoints.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"funnel_dashboard_backend/internal/funnel"
	"funnel_dashboard_backend/internal/reports/domain"
	"funnel_dashboard_backend/internal/reports/service"
	"funnel_dashboard_backend/platform/httpkit"
	"funnel_dashboard_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// TargetStore persists seeded monthly goals.
type TargetStore interface {
	Upsert(ctx context.Context, t domain.Targets) error
}

// SpendStore persists cached ad spend figures.
type SpendStore interface {
	UpsertSpend(ctx context.Context, year, month int, source string, amount float64) error
}

// Handler handles HTTP requests for funnel reports.
type Handler struct {
	svc     *service.Service
	targets TargetStore
	spend   SpendStore
	val     *validator.Validator
}

// New creates a new reports handler.
func New(svc *service.Service, targets TargetStore, spend SpendStore, val *validator.Validator) *Handler {
	return &Handler{svc: svc, targets: targets, spend: spend, val: val}
}

// RegisterRoutes registers the public report route on v1 and the seeding
// routes on the admin group.
func (h *Handler) RegisterRoutes(v1, admin *gin.RouterGroup) {
	v1.GET("/reports/funnel", h.GetFunnelReport)
	admin.PUT("/targets", h.SeedTargets)
	admin.PUT("/adspend", h.SeedAdSpend)
}

// GetFunnelReport handles GET /api/v1/reports/funnel.
// Query parameters year, month and unit default to the current month and the
// combined view.
func (h *Handler) GetFunnelReport(c *gin.Context) {
	now := time.Now().UTC()

	year, err := queryInt(c, "year", now.Year())
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "year must be an integer")
		return
	}
	monthNum, err := queryInt(c, "month", int(now.Month()))
	if err != nil || monthNum < 1 || monthNum > 12 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "month must be between 1 and 12")
		return
	}

	unit, err := funnel.ParseUnit(c.DefaultQuery("unit", string(funnel.UnitTotal)))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	report, err := h.svc.FunnelReport(c.Request.Context(), year, time.Month(monthNum), unit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, report)
}

type seedTargetsRequest struct {
	Unit             string  `json:"unit" validate:"required,oneof=wedding elopement trips"`
	Year             int     `json:"year" validate:"required,gte=2020,lte=2100"`
	Month            int     `json:"month" validate:"required,gte=1,lte=12"`
	Leads            int     `json:"leads" validate:"gte=0"`
	MQL              int     `json:"mql" validate:"gte=0"`
	MeetingScheduled int     `json:"meetingScheduled" validate:"gte=0"`
	MeetingHeld      int     `json:"meetingHeld" validate:"gte=0"`
	Qualified        int     `json:"qualified" validate:"gte=0"`
	CloserScheduled  int     `json:"closerScheduled" validate:"gte=0"`
	CloserHeld       int     `json:"closerHeld" validate:"gte=0"`
	Won              int     `json:"won" validate:"gte=0"`
	FeePaid          int     `json:"feePaid" validate:"gte=0"`
	CostPerLead      float64 `json:"costPerLead" validate:"gte=0"`
}

// SeedTargets handles PUT /api/v1/admin/targets.
func (h *Handler) SeedTargets(c *gin.Context) {
	var req seedTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	targets := domain.Targets{
		Unit:             req.Unit,
		Year:             req.Year,
		Month:            req.Month,
		Leads:            req.Leads,
		MQL:              req.MQL,
		MeetingScheduled: req.MeetingScheduled,
		MeetingHeld:      req.MeetingHeld,
		Qualified:        req.Qualified,
		CloserScheduled:  req.CloserScheduled,
		CloserHeld:       req.CloserHeld,
		Won:              req.Won,
		FeePaid:          req.FeePaid,
		CostPerLead:      req.CostPerLead,
	}
	if err := h.targets.Upsert(c.Request.Context(), targets); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to save targets", nil)
		return
	}

	httpkit.OK(c, gin.H{"success": true})
}

type seedAdSpendRequest struct {
	Year   int     `json:"year" validate:"required,gte=2020,lte=2100"`
	Month  int     `json:"month" validate:"required,gte=1,lte=12"`
	Source string  `json:"source" validate:"required,oneof=meta google"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// SeedAdSpend handles PUT /api/v1/admin/adspend.
func (h *Handler) SeedAdSpend(c *gin.Context) {
	var req seedAdSpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.spend.UpsertSpend(c.Request.Context(), req.Year, req.Month, req.Source, req.Amount); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to save ad spend", nil)
		return
	}

	httpkit.OK(c, gin.H{"success": true})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
