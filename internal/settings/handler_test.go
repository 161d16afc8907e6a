package settings_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/gt"

	"github.com/aura-webinar/gtw-tools/internal/persist"
	"github.com/aura-webinar/gtw-tools/internal/settings"
)

func newRouter(store *settings.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := settings.NewHandler(store)
	r := gin.New()
	r.GET("/api/settings", h.Get)
	r.POST("/api/settings", h.Update)
	return r
}

func TestSettingsEndpointRoundTrip(t *testing.T) {
	store := settings.NewStore(persist.NewMemory(), "k", settings.Defaults("https://a"), nil)
	r := newRouter(store)

	body, _ := json.Marshal(map[string]string{
		"messageTemplate":    "Hi! {{checkoutLink}}",
		"defaultAffiliateId": "aff-9",
		"baseCheckoutUrl":    "https://shop.example/checkout",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/settings", bytes.NewReader(body)))
	gt.Equal(t, http.StatusOK, w.Code)

	var posted struct {
		Success  bool              `json:"success"`
		Settings settings.Settings `json:"settings"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &posted)).Required()
	gt.True(t, posted.Success)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	gt.Equal(t, http.StatusOK, w.Code)

	var got settings.Settings
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &got)).Required()
	gt.Equal(t, settings.Settings{
		MessageTemplate:    "Hi! {{checkoutLink}}",
		DefaultAffiliateID: "aff-9",
		BaseCheckoutURL:    "https://shop.example/checkout",
	}, got)
	gt.Equal(t, posted.Settings, got)
}

func TestSettingsEndpointRejectsMalformedBody(t *testing.T) {
	r := newRouter(settings.NewStore(persist.NewMemory(), "k", settings.Defaults("https://a"), nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/settings", bytes.NewReader([]byte("{"))))
	gt.Equal(t, http.StatusBadRequest, w.Code)
}
