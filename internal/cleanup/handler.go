package cleanup

import (
	"net/http"

	"funnel_dashboard_backend/platform/httpkit"
	"funnel_dashboard_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler exposes the manual cleanup trigger for operators.
type Handler struct {
	job    *Job
	locker *Locker
	log    *logger.Logger
}

// NewHandler creates the cleanup handler.
func NewHandler(job *Job, locker *Locker, log *logger.Logger) *Handler {
	return &Handler{job: job, locker: locker, log: log}
}

// RegisterRoutes mounts the cleanup trigger on the admin group.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/deals/cleanup", h.RunBatch)
}

type runBatchRequest struct {
	Cursor int64 `json:"cursor"`
	Limit  int   `json:"limit"`
}

// RunBatch handles POST /api/v1/admin/deals/cleanup. It runs exactly one
// batch; the caller re-invokes with nextCursor until done is true.
func (h *Handler) RunBatch(c *gin.Context) {
	var req runBatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}

	acquired, err := h.locker.Acquire(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to acquire cleanup lock", nil)
		return
	}
	if !acquired {
		httpkit.Error(c, http.StatusConflict, "a cleanup run is already in progress", nil)
		return
	}
	defer func() {
		if err := h.locker.Release(c.Request.Context()); err != nil {
			h.log.Error("failed to release cleanup lock", "error", err)
		}
	}()

	result, err := h.job.Run(c.Request.Context(), req.Cursor, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	// nextCursor is null once the scan is exhausted.
	var nextCursor interface{}
	if !result.Done {
		nextCursor = result.NextCursor
	}

	httpkit.OK(c, gin.H{
		"success":    true,
		"done":       result.Done,
		"nextCursor": nextCursor,
		"results": gin.H{
			"processed": result.Processed,
			"deleted":   result.Deleted,
			"kept":      result.Kept,
			"errors":    result.Errors,
		},
		"deletedDeals": result.DeletedDeals,
	})
}
