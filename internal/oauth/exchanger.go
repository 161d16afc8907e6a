// Package oauth implements the GoToWebinar authorization-code flow: building the consent URL,
// exchanging codes for tokens and refreshing them.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/tokens"
)

// maxBodySize bounds how much of a token endpoint response is read.
const maxBodySize = 1 << 20

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	Timeout      time.Duration
}

// Exchanger talks to the GoTo token endpoint and records results in the token store.
// It never retries; callers decide.
type Exchanger struct {
	cfg        Config
	store      *tokens.Store
	httpClient *http.Client
	logger     *zap.Logger
}

// NewExchanger creates an exchanger. A nil httpClient gets one with cfg.Timeout.
func NewExchanger(cfg Config, store *tokens.Store, httpClient *http.Client, logger *zap.Logger) *Exchanger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Exchanger{cfg: cfg, store: store, httpClient: httpClient, logger: logger}
}

// AuthorizationURL returns the consent page URL the dashboard sends the organizer to.
func (e *Exchanger) AuthorizationURL() string {
	q := url.Values{}
	q.Set("client_id", e.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", e.cfg.RedirectURI)
	return e.cfg.AuthorizeURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token pair and stores all three token fields.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (tokens.State, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", e.cfg.ClientID)
	form.Set("redirect_uri", e.cfg.RedirectURI)

	tr, err := e.post(ctx, OpExchange, "Authentication failed", form)
	if err != nil {
		e.logger.Warn("token exchange failed", zap.Error(err))
		return tokens.State{}, err
	}
	st := tokens.State{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		OrganizerKey: tr.organizerKey(),
	}
	e.store.Set(ctx, st)
	e.logger.Info("token exchanged", zap.String("organizer_key", st.OrganizerKey))
	return st, nil
}

// Refresh trades the stored refresh token for a new token pair.
// Without a refresh token it fails before touching the network.
func (e *Exchanger) Refresh(ctx context.Context) (tokens.State, error) {
	prev := e.store.Get()
	if !prev.HasRefreshToken() {
		return tokens.State{}, &AuthError{Op: OpRefresh, Message: "No refresh token available", Err: ErrNoRefreshToken}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", prev.RefreshToken)
	form.Set("client_id", e.cfg.ClientID)

	tr, err := e.post(ctx, OpRefresh, "Token refresh failed", form)
	if err != nil {
		e.logger.Warn("token refresh failed", zap.Error(err))
		return tokens.State{}, err
	}
	st := tokens.State{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		OrganizerKey: tr.organizerKey(),
	}
	if st.RefreshToken == "" {
		st.RefreshToken = prev.RefreshToken
	}
	if st.OrganizerKey == "" {
		st.OrganizerKey = prev.OrganizerKey
	}
	e.store.Set(ctx, st)
	e.logger.Info("token refreshed", zap.String("organizer_key", st.OrganizerKey))
	return st, nil
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	OrganizerKey json.RawMessage `json:"organizer_key"`
	ExpiresIn    int             `json:"expires_in"`
}

// organizerKey accepts the key as either a JSON string or a bare number.
func (t tokenResponse) organizerKey() string {
	raw := strings.TrimSpace(string(t.OrganizerKey))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(t.OrganizerKey, &s); err == nil {
		return s
	}
	return raw
}

func (e *Exchanger) post(ctx context.Context, op, message string, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(e.cfg.ClientID, e.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Op: op, Message: message, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &AuthError{Op: op, Message: message, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &AuthError{Op: op, Message: message, StatusCode: resp.StatusCode}
		if json.Valid(body) {
			ae.Body = body
		} else if len(body) > 0 {
			ae.Err = fmt.Errorf("%s", strings.TrimSpace(string(body)))
		}
		return nil, ae
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &AuthError{Op: op, Message: message, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return nil, &AuthError{Op: op, Message: message, StatusCode: resp.StatusCode, Body: body, Err: fmt.Errorf("token response without access_token")}
	}
	return &tr, nil
}
