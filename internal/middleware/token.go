package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/gtw-tools/internal/tokens"
	"github.com/aura-webinar/gtw-tools/pkg/response"
)

// ContextOrganizerKey is the key for the organizer key in gin context.
const ContextOrganizerKey = "organizer_key"

// RequireToken rejects requests with 401 until a GoTo access token is stored.
func RequireToken(store *tokens.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := store.Get()
		if !st.HasAccessToken() {
			response.Unauthorized(c, "Not authenticated", nil)
			c.Abort()
			return
		}
		c.Set(ContextOrganizerKey, st.OrganizerKey)
		c.Next()
	}
}
