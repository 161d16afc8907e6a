package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type notAuthenticatedError struct{}

func (notAuthenticatedError) Error() string             { return "not authenticated" }
func (notAuthenticatedError) HTTPStatus() int           { return http.StatusUnauthorized }
func (notAuthenticatedError) PublicMessage() string     { return "Not authenticated" }
func (notAuthenticatedError) ErrorDetails() interface{} { return nil }

// ErrNotAuthenticated is returned without any network call when no access token is stored.
var ErrNotAuthenticated error = notAuthenticatedError{}

// UpstreamError is a non-2xx answer from the webinar API (other than an unrecoverable 401,
// which is reported as *oauth.AuthError).
type UpstreamError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if b := strings.TrimSpace(string(e.Body)); b != "" {
		msg += ": " + b
	}
	return msg
}

// HTTPStatus passes the upstream status through to our caller.
func (e *UpstreamError) HTTPStatus() int { return e.StatusCode }

// ErrorDetails is the upstream body, decoded when it is JSON.
func (e *UpstreamError) ErrorDetails() interface{} {
	if len(e.Body) == 0 {
		return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}
