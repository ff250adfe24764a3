package webhook

import (
	"io"
	"net/http"

	"funnel_dashboard_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// maxBodySize caps webhook payloads at 1 MiB. CRM notifications are small;
// anything bigger is not a deal notification.
const maxBodySize = 1 << 20

// Handler handles the CRM notification endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates the webhook handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the webhook endpoint with shared-token auth and the
// per-IP rate limit.
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup, auth, rateLimit gin.HandlerFunc) {
	group := v1.Group("/webhook")
	group.Use(rateLimit, auth)
	group.GET("/activecampaign", h.Probe)
	group.POST("/activecampaign", h.Receive)
}

// Probe answers the CRM's endpoint liveness check.
func (h *Handler) Probe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "endpoint": "activecampaign-webhook"})
}

// Receive handles POST /api/v1/webhook/activecampaign.
func (h *Handler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}

	notification, err := Decode(c.ContentType(), body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "undecodable payload", err.Error())
		return
	}

	action, id, err := h.svc.Process(c.Request.Context(), notification)
	if httpkit.HandleError(c, err) {
		return
	}

	response := gin.H{"success": true, "action": action}
	if id != 0 {
		response["id"] = id
	}
	if action == ActionIgnored {
		response["type"] = notification.Type
	}
	c.JSON(http.StatusOK, response)
}
