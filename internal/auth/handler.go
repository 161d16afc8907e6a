// Package auth serves the dashboard's GoToWebinar sign-in endpoints.
package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/oauth"
	"github.com/aura-webinar/gtw-tools/internal/tokens"
	"github.com/aura-webinar/gtw-tools/internal/upstream"
	"github.com/aura-webinar/gtw-tools/pkg/response"
)

// tokenPrefixLen is how much of the access token /api/debug/token reveals.
const tokenPrefixLen = 10

// TokenRequest is the body for POST /api/auth/token.
type TokenRequest struct {
	Code string `json:"code"`
}

// StatusResponse is returned by GET /api/auth/status.
type StatusResponse struct {
	Authenticated bool    `json:"authenticated"`
	OrganizerKey  *string `json:"organizerKey"`
}

// DebugResponse is returned by GET /api/debug/token.
type DebugResponse struct {
	HasAccessToken    bool       `json:"hasAccessToken"`
	AccessTokenPrefix *string    `json:"accessTokenPrefix"`
	HasRefreshToken   bool       `json:"hasRefreshToken"`
	OrganizerKey      *string    `json:"organizerKey"`
	State             string     `json:"state"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	exchanger *oauth.Exchanger
	store     *tokens.Store
	client    *upstream.Client
	logger    *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(exchanger *oauth.Exchanger, store *tokens.Store, client *upstream.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{exchanger: exchanger, store: store, client: client, logger: logger}
}

// AuthURL handles GET /api/auth-url.
func (h *Handler) AuthURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": h.exchanger.AuthorizationURL()})
}

// Token handles POST /api/auth/token.
func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err.Error())
		return
	}
	if req.Code == "" {
		response.BadRequest(c, "Authorization code is required", nil)
		return
	}
	if _, err := h.exchanger.ExchangeCode(c.Request.Context(), req.Code); err != nil {
		h.logger.Warn("token exchange error", zap.Error(err))
		response.Error(c, err, "Authentication failed")
		return
	}
	response.Success(c)
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	if _, err := h.exchanger.Refresh(c.Request.Context()); err != nil {
		h.logger.Warn("token refresh error", zap.Error(err))
		response.Error(c, err, "Token refresh failed")
		return
	}
	response.Success(c)
}

// Status handles GET /api/auth/status.
func (h *Handler) Status(c *gin.Context) {
	st := h.store.Get()
	c.JSON(http.StatusOK, StatusResponse{
		Authenticated: st.HasAccessToken(),
		OrganizerKey:  nullable(st.OrganizerKey),
	})
}

// Debug handles GET /api/debug/token. The token itself is never returned.
func (h *Handler) Debug(c *gin.Context) {
	st := h.store.Get()
	resp := DebugResponse{
		HasAccessToken:    st.HasAccessToken(),
		AccessTokenPrefix: nullable(tokens.Prefix(st.AccessToken, tokenPrefixLen)),
		HasRefreshToken:   st.HasRefreshToken(),
		OrganizerKey:      nullable(st.OrganizerKey),
		State:             h.client.State().String(),
	}
	if exp, ok := tokens.ExpiresAt(st.AccessToken); ok {
		resp.ExpiresAt = &exp
	}
	c.JSON(http.StatusOK, resp)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
