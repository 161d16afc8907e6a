// Package webinars proxies webinar reads to GoToWebinar and exposes the chat messaging endpoints.
package webinars

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/messenger"
	"github.com/aura-webinar/gtw-tools/internal/settings"
	"github.com/aura-webinar/gtw-tools/pkg/response"
)

// API is the upstream surface these endpoints forward to. *upstream.Client implements it.
type API interface {
	ListWebinars(ctx context.Context) (json.RawMessage, error)
	GetWebinar(ctx context.Context, webinarKey string) (json.RawMessage, error)
	ListAttendees(ctx context.Context, webinarKey string) (json.RawMessage, error)
	GetRegistrant(ctx context.Context, webinarKey, registrantKey string) (json.RawMessage, error)
	SendChat(ctx context.Context, webinarKey, sessionKey, registrantKey, message string) error
}

// BulkSender runs a bulk send. *messenger.Messenger implements it.
type BulkSender interface {
	SendToAllAttendees(ctx context.Context, webinarKey, sessionKey, template, defaultAffiliateID string) (*messenger.Summary, error)
}

// MessageRequest is the body for POST .../attendees/:registrantKey/message.
type MessageRequest struct {
	Message string `json:"message"`
}

// BulkRequest is the body for POST .../sessions/:sessionKey/messages.
// RunID is optional; a dashboard that sets it can subscribe to /api/ws/progress?run_id= first.
type BulkRequest struct {
	MessageTemplate    string `json:"messageTemplate"`
	DefaultAffiliateID string `json:"defaultAffiliateId"`
	RunID              string `json:"runId"`
}

// Handler handles webinar HTTP endpoints.
type Handler struct {
	api      API
	sender   BulkSender
	settings *settings.Store
	logger   *zap.Logger
}

// NewHandler creates a webinar handler.
func NewHandler(api API, sender BulkSender, store *settings.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{api: api, sender: sender, settings: store, logger: logger}
}

// List handles GET /api/webinars.
func (h *Handler) List(c *gin.Context) {
	body, err := h.api.ListWebinars(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch webinars")
		return
	}
	response.Raw(c, body)
}

// Get handles GET /api/webinars/:webinarKey.
func (h *Handler) Get(c *gin.Context) {
	body, err := h.api.GetWebinar(c.Request.Context(), c.Param("webinarKey"))
	if err != nil {
		h.fail(c, err, "Failed to fetch webinar details")
		return
	}
	response.Raw(c, body)
}

// Attendees handles GET /api/webinars/:webinarKey/attendees.
func (h *Handler) Attendees(c *gin.Context) {
	body, err := h.api.ListAttendees(c.Request.Context(), c.Param("webinarKey"))
	if err != nil {
		h.fail(c, err, "Failed to fetch attendees")
		return
	}
	response.Raw(c, body)
}

// Registrant handles GET /api/webinars/:webinarKey/registrants/:registrantKey.
func (h *Handler) Registrant(c *gin.Context) {
	body, err := h.api.GetRegistrant(c.Request.Context(), c.Param("webinarKey"), c.Param("registrantKey"))
	if err != nil {
		h.fail(c, err, "Failed to fetch registrant details")
		return
	}
	response.Raw(c, body)
}

// SendMessage handles POST /api/webinars/:webinarKey/sessions/:sessionKey/attendees/:registrantKey/message.
func (h *Handler) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err.Error())
		return
	}
	if req.Message == "" {
		response.BadRequest(c, "Message is required", nil)
		return
	}
	err := h.api.SendChat(c.Request.Context(), c.Param("webinarKey"), c.Param("sessionKey"), c.Param("registrantKey"), req.Message)
	if err != nil {
		h.fail(c, err, "Failed to send message")
		return
	}
	response.Success(c)
}

// SendBulk handles POST /api/webinars/:webinarKey/sessions/:sessionKey/messages.
// Per-attendee failures are part of the 200 response; only a failed attendee list fetch or a bad
// template fails the request. The send runs inline for as long as the batch takes, so the server's
// write deadline is lifted for this response.
func (h *Handler) SendBulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err.Error())
		return
	}
	if req.MessageTemplate == "" {
		response.BadRequest(c, "Message template is required", nil)
		return
	}
	ctx := c.Request.Context()
	if req.RunID != "" {
		if _, err := uuid.Parse(req.RunID); err != nil {
			response.BadRequest(c, "runId must be a UUID", nil)
			return
		}
		ctx = messenger.WithRunID(ctx, req.RunID)
	}
	affiliateID := req.DefaultAffiliateID
	if affiliateID == "" {
		affiliateID = h.settings.Get().DefaultAffiliateID
	}

	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("clear write deadline", zap.Error(err))
	}

	sum, err := h.sender.SendToAllAttendees(ctx, c.Param("webinarKey"), c.Param("sessionKey"), req.MessageTemplate, affiliateID)
	if err != nil {
		h.fail(c, err, "Failed to send messages")
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	h.logger.Warn(msg, zap.String("path", c.FullPath()), zap.Error(err))
	response.Error(c, err, msg)
}
