package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/gt"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aura-webinar/gtw-tools/internal/middleware"
	"github.com/aura-webinar/gtw-tools/internal/persist"
	"github.com/aura-webinar/gtw-tools/internal/tokens"
)

func TestRequireToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := tokens.NewStore(persist.NewMemory(), "k", tokens.State{}, nil)
	r := gin.New()
	r.GET("/api/webinars", middleware.RequireToken(store), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.ContextOrganizerKey))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webinars", nil))
	gt.Equal(t, http.StatusUnauthorized, w.Code)
	gt.Equal(t, `{"error":"Not authenticated"}`, w.Body.String())

	store.Set(t.Context(), tokens.State{AccessToken: "at", OrganizerKey: "org"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webinars", nil))
	gt.Equal(t, http.StatusOK, w.Code)
	gt.Equal(t, "org", w.Body.String())
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS("http://localhost:5173"))
	r.GET("/api/settings", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/settings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	gt.Equal(t, http.StatusNoContent, w.Code)
	gt.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	gt.Equal(t, http.StatusOK, w.Code)
	gt.Equal(t, "", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggerRecordsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(middleware.Logger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	gt.A(t, entries).Length(2)
	gt.Equal(t, "request", entries[0].Message)
	gt.Equal(t, "/health", entries[0].ContextMap()["path"].(string))
	gt.Equal(t, zap.ErrorLevel, entries[1].Level)
}
