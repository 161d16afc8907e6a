package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestRunPrintsEnvLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm())
		gt.Equal(t, "the-code", r.PostForm.Get("code"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at",
			"refresh_token": "rt",
			"organizer_key": 123,
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	var out bytes.Buffer
	err := run(context.Background(), []string{
		"gettoken",
		"--client-id", "id",
		"--client-secret", "secret",
		"--token-url", srv.URL,
		"--state-dir", dir,
		"the-code",
	}, &out)
	gt.NoError(t, err).Required()

	gt.S(t, out.String()).Contains("GTW_ACCESS_TOKEN=at\n")
	gt.S(t, out.String()).Contains("GTW_REFRESH_TOKEN=rt\n")
	gt.S(t, out.String()).Contains("GTW_ORGANIZER_KEY=123\n")

	saved, err := os.ReadFile(filepath.Join(dir, ".tokens.json"))
	gt.NoError(t, err).Required()
	gt.S(t, string(saved)).Contains(`"organizerKey":"123"`)
}

func TestRunRequiresCode(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"gettoken", "--client-id", "id", "--client-secret", "s"}, &out)
	gt.Error(t, err)
	gt.Equal(t, 0, out.Len())
}

func TestRunReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := run(context.Background(), []string{"gettoken", "--client-id", "id", "--client-secret", "s", "--token-url", srv.URL, "used"}, &out)
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("status 400")
}
