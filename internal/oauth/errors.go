package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoRefreshToken is returned by Refresh before any network call when no refresh token is stored.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Operation names recorded on AuthError.
const (
	OpExchange = "exchange"
	OpRefresh  = "refresh"
	OpRetry    = "retry"
)

// AuthError means GoTo rejected our credentials: a code exchange or refresh failed, or a request
// was still unauthorized after a refresh.
type AuthError struct {
	Op         string
	Message    string          // user-facing summary, e.g. "Authentication failed"
	StatusCode int             // upstream status, 0 if the request never completed
	Body       json.RawMessage // upstream body when it was JSON
	Err        error
}

func (e *AuthError) Error() string {
	switch {
	case e.StatusCode != 0 && len(e.Body) > 0:
		return fmt.Sprintf("oauth %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("oauth %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("oauth %s: %v", e.Op, e.Err)
	}
	return "oauth " + e.Op + ": unauthorized"
}

func (e *AuthError) Unwrap() error { return e.Err }

// HTTPStatus maps every auth failure to 401.
func (e *AuthError) HTTPStatus() int { return http.StatusUnauthorized }

// PublicMessage is the "error" field shown to the dashboard.
func (e *AuthError) PublicMessage() string { return e.Message }

// ErrorDetails returns the upstream body, or the cause message when there is none.
func (e *AuthError) ErrorDetails() interface{} {
	if len(e.Body) > 0 {
		return e.Body
	}
	var inner *AuthError
	if errors.As(e.Err, &inner) {
		return inner.ErrorDetails()
	}
	if errors.Is(e.Err, ErrNoRefreshToken) {
		return nil
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return nil
}
