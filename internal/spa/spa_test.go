package spa_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/gt"

	"github.com/aura-webinar/gtw-tools/internal/spa"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dashboard</html>"), 0o644)).Required()
	gt.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755)).Required()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644)).Required()
	gt.True(t, spa.Available(dir))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/oauth-callback", spa.OAuthCallback)
	r.NoRoute(spa.Handler(dir))
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestOAuthCallback(t *testing.T) {
	r := newRouter(t)

	w := get(r, "/oauth-callback?code=a%2Bb")
	gt.Equal(t, http.StatusFound, w.Code)
	gt.Equal(t, "/?code=a%2Bb", w.Header().Get("Location"))

	w = get(r, "/oauth-callback")
	gt.Equal(t, http.StatusBadRequest, w.Code)
	gt.Equal(t, "Authorization code is required", w.Body.String())
}

func TestStaticAndFallback(t *testing.T) {
	r := newRouter(t)

	w := get(r, "/assets/app.js")
	gt.Equal(t, http.StatusOK, w.Code)
	gt.Equal(t, "console.log(1)", w.Body.String())

	w = get(r, "/settings")
	gt.Equal(t, http.StatusOK, w.Code)
	gt.S(t, w.Body.String()).Contains("dashboard")

	w = get(r, "/api/nope")
	gt.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvailable(t *testing.T) {
	gt.False(t, spa.Available(t.TempDir()))
}
