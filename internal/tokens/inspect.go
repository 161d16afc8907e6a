package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of a JWT-shaped access token without verifying its signature.
// GoTo has issued both opaque and JWT access tokens; ok is false for opaque ones.
func ExpiresAt(accessToken string) (exp time.Time, ok bool) {
	if accessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Prefix returns the first n characters of the token followed by "..." for diagnostics.
func Prefix(token string, n int) string {
	if token == "" {
		return ""
	}
	if len(token) <= n {
		return token + "..."
	}
	return token[:n] + "..."
}
