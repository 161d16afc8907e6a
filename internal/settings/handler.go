package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/gtw-tools/pkg/response"
)

// Handler handles /api/settings.
type Handler struct {
	store *Store
}

// NewHandler creates a settings handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Get handles GET /api/settings.
func (h *Handler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Get())
}

// Update handles POST /api/settings. Empty or missing fields keep their current value.
func (h *Handler) Update(c *gin.Context) {
	var req Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err.Error())
		return
	}
	updated := h.store.Update(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": updated})
}
