// Package spa serves the built dashboard and the OAuth redirect target.
package spa

import (
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// OAuthCallback handles GET /oauth-callback by handing the code to the dashboard at /?code=.
func OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Authorization code is required")
		return
	}
	c.Redirect(http.StatusFound, "/?code="+url.QueryEscape(code))
}

// Available reports whether dir holds a built dashboard.
func Available(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil && !info.IsDir()
}

// Handler serves files from dir and falls back to index.html so client-side routes resolve.
// Unknown /api/ paths stay 404 JSON.
func Handler(dir string) gin.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusMethodNotAllowed)
			return
		}
		clean := path.Clean("/" + p)
		if clean != "/" {
			if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !info.IsDir() {
				files.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.File(index)
	}
}
