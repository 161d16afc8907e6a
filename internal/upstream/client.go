// Package upstream is the authenticated client for the GoToWebinar REST v2 API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aura-webinar/gtw-tools/internal/oauth"
	"github.com/aura-webinar/gtw-tools/internal/tokens"
)

const maxBodySize = 10 << 20

// Refresher rotates the stored token pair. *oauth.Exchanger implements it.
type Refresher interface {
	Refresh(ctx context.Context) (tokens.State, error)
}

// AuthState is the client's view of the token lifecycle.
type AuthState int

const (
	Unauthenticated AuthState = iota
	Authenticated
	RefreshInFlight
)

func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case RefreshInFlight:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Client issues requests under /organizers/{organizerKey}, refreshing the token once on 401.
// Concurrent callers that hit 401 share a single refresh.
type Client struct {
	baseURL    string
	store      *tokens.Store
	refresher  Refresher
	httpClient *http.Client
	logger     *zap.Logger

	refreshes  singleflight.Group
	refreshing atomic.Bool
}

// NewClient creates a client for baseURL (e.g. https://api.getgo.com/G2W/rest/v2).
func NewClient(baseURL string, store *tokens.Store, refresher Refresher, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		refresher:  refresher,
		httpClient: httpClient,
		logger:     logger,
	}
}

// State reports whether a token is available and whether a refresh is running.
func (c *Client) State() AuthState {
	if c.refreshing.Load() {
		return RefreshInFlight
	}
	if c.store.Get().HasAccessToken() {
		return Authenticated
	}
	return Unauthenticated
}

// Do sends method to path (relative to the organizer) with body encoded as JSON when non-nil.
// An empty 2xx body yields nil.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	st := c.store.Get()
	if !st.HasAccessToken() {
		return nil, ErrNotAuthenticated
	}
	status, data, err := c.send(ctx, method, path, payload, st)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized || !st.HasRefreshToken() {
		return result(method, path, status, data)
	}

	c.logger.Info("upstream returned 401, refreshing token", zap.String("method", method), zap.String("path", path))
	next, err := c.refresh(ctx, st.AccessToken)
	if err != nil {
		return nil, &oauth.AuthError{Op: oauth.OpRetry, Message: "Authentication failed", Err: err}
	}

	status, data, err = c.send(ctx, method, path, payload, next)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		ae := &oauth.AuthError{Op: oauth.OpRetry, Message: "Authentication failed", StatusCode: status}
		if json.Valid(data) {
			ae.Body = data
		}
		return nil, ae
	}
	return result(method, path, status, data)
}

// refresh returns a usable token state after stale was rejected. Callers rejected with the
// same token share one refresh; if the token was already rotated, no refresh is made.
func (c *Client) refresh(ctx context.Context, stale string) (tokens.State, error) {
	ch := c.refreshes.DoChan(stale, func() (interface{}, error) {
		if cur := c.store.Get(); cur.HasAccessToken() && cur.AccessToken != stale {
			return cur, nil
		}
		c.refreshing.Store(true)
		defer c.refreshing.Store(false)
		// Detached from ctx: other waiters share this refresh.
		return c.refresher.Refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return tokens.State{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return tokens.State{}, r.Err
		}
		return r.Val.(tokens.State), nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, st tokens.State) (int, []byte, error) {
	endpoint := c.baseURL + "/organizers/" + url.PathEscape(st.OrganizerKey) + path
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+st.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	c.logger.Debug("upstream request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

func result(method, path string, status int, data []byte) (json.RawMessage, error) {
	if status < 200 || status > 299 {
		return nil, &UpstreamError{Method: method, Path: path, StatusCode: status, Body: data}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}
