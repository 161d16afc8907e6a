package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/aura-webinar/gtw-tools/internal/oauth"
	"github.com/aura-webinar/gtw-tools/internal/persist"
	"github.com/aura-webinar/gtw-tools/internal/tokens"
	"github.com/aura-webinar/gtw-tools/internal/upstream"
)

// fakeGoTo serves both the token endpoint and the REST API. The token endpoint hands out
// issue; the API only accepts "Bearer <valid>".
type fakeGoTo struct {
	valid      string
	issue      string
	tokenCalls int32
	apiCalls   int32
	tokenDelay time.Duration
	tokenFail  int // non-zero makes the token endpoint answer with this status
	apiHandler http.HandlerFunc
}

func (f *fakeGoTo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/oauth/token" {
		atomic.AddInt32(&f.tokenCalls, 1)
		time.Sleep(f.tokenDelay)
		if f.tokenFail != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.tokenFail)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": f.issue, "refresh_token": "rt-2"})
		return
	}
	atomic.AddInt32(&f.apiCalls, 1)
	if r.Header.Get("Authorization") != "Bearer "+f.valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"int_err_code":"InvalidToken"}`))
		return
	}
	if f.apiHandler != nil {
		f.apiHandler(w, r)
		return
	}
	w.Write([]byte(`[{"webinarKey":"1","subject":"Launch"}]`))
}

func setup(t *testing.T, fake *fakeGoTo, seed tokens.State) (*upstream.Client, *tokens.Store) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store := tokens.NewStore(persist.NewMemory(), ".tokens.json", seed, nil)
	ex := oauth.NewExchanger(oauth.Config{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/oauth/token"}, store, nil, nil)
	return upstream.NewClient(srv.URL+"/G2W/rest/v2", store, ex, nil, nil), store
}

func TestDoRefreshesOnceAndReturnsSecondResponse(t *testing.T) {
	fake := &fakeGoTo{valid: "fresh", issue: "fresh"}
	client, store := setup(t, fake, tokens.State{AccessToken: "stale", RefreshToken: "rt-1", OrganizerKey: "org"})

	body, err := client.ListWebinars(context.Background())
	gt.NoError(t, err).Required()
	gt.Equal(t, `[{"webinarKey":"1","subject":"Launch"}]`, string(body))

	gt.Equal(t, tokens.State{AccessToken: "fresh", RefreshToken: "rt-2", OrganizerKey: "org"}, store.Get())
	gt.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
	gt.Equal(t, int32(2), atomic.LoadInt32(&fake.apiCalls))
	gt.Equal(t, upstream.Authenticated, client.State())
}

func TestDoSecondUnauthorizedIsAuthError(t *testing.T) {
	// The refresh succeeds but hands out a token the API still rejects.
	fake := &fakeGoTo{valid: "never-issued", issue: "rotated"}
	client, _ := setup(t, fake, tokens.State{AccessToken: "stale", RefreshToken: "rt-1", OrganizerKey: "org"})

	_, err := client.GetWebinar(context.Background(), "42")

	var ae *oauth.AuthError
	gt.True(t, errors.As(err, &ae))
	gt.Equal(t, oauth.OpRetry, ae.Op)
	gt.Equal(t, http.StatusUnauthorized, ae.HTTPStatus())
	gt.Equal(t, int32(2), atomic.LoadInt32(&fake.apiCalls))
	gt.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
}

func TestDoRefreshFailureIsAuthError(t *testing.T) {
	fake := &fakeGoTo{valid: "fresh", issue: "fresh", tokenFail: http.StatusBadRequest}
	seed := tokens.State{AccessToken: "stale", RefreshToken: "rt-1", OrganizerKey: "org"}
	client, store := setup(t, fake, seed)

	_, err := client.ListAttendees(context.Background(), "42")

	var ae *oauth.AuthError
	gt.True(t, errors.As(err, &ae))
	gt.Equal(t, oauth.OpRetry, ae.Op)
	gt.Equal(t, http.StatusUnauthorized, ae.HTTPStatus())
	gt.Equal(t, "Authentication failed", ae.PublicMessage())
	gt.Equal(t, `{"error":"invalid_grant"}`, string(ae.ErrorDetails().(json.RawMessage)))
	gt.Equal(t, int32(1), atomic.LoadInt32(&fake.apiCalls))
	gt.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
	gt.Equal(t, seed, store.Get())
}

func TestDoConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	const n = 8
	fake := &fakeGoTo{valid: "fresh", issue: "fresh", tokenDelay: 100 * time.Millisecond}
	client, _ := setup(t, fake, tokens.State{AccessToken: "stale", RefreshToken: "rt-1", OrganizerKey: "org"})

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListWebinars(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		gt.NoError(t, err)
	}
	gt.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
}

func TestDoWithoutTokenMakesNoCall(t *testing.T) {
	fake := &fakeGoTo{valid: "x"}
	client, _ := setup(t, fake, tokens.State{})

	_, err := client.ListWebinars(context.Background())
	gt.True(t, errors.Is(err, upstream.ErrNotAuthenticated))
	gt.Equal(t, int32(0), atomic.LoadInt32(&fake.apiCalls))
	gt.Equal(t, upstream.Unauthenticated, client.State())
}

func TestDoUnauthorizedWithoutRefreshTokenPassesThrough(t *testing.T) {
	fake := &fakeGoTo{valid: "other"}
	client, _ := setup(t, fake, tokens.State{AccessToken: "stale", OrganizerKey: "org"})

	_, err := client.ListWebinars(context.Background())
	var ue *upstream.UpstreamError
	gt.True(t, errors.As(err, &ue))
	gt.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	gt.Equal(t, int32(0), atomic.LoadInt32(&fake.tokenCalls))
}

func TestDoNon2xxIsUpstreamError(t *testing.T) {
	fake := &fakeGoTo{valid: "ok", apiHandler: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"description":"Webinar not found"}`))
	}}
	client, _ := setup(t, fake, tokens.State{AccessToken: "ok", OrganizerKey: "org"})

	_, err := client.GetWebinar(context.Background(), "missing")
	var ue *upstream.UpstreamError
	gt.True(t, errors.As(err, &ue))
	gt.Equal(t, http.StatusNotFound, ue.HTTPStatus())
	details, ok := ue.ErrorDetails().(json.RawMessage)
	gt.True(t, ok)
	gt.Equal(t, `{"description":"Webinar not found"}`, string(details))
}

func TestSendChatPostsMessageToEscapedPath(t *testing.T) {
	var gotPath, gotBody, gotType string
	fake := &fakeGoTo{valid: "ok", apiHandler: func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}}
	client, _ := setup(t, fake, tokens.State{AccessToken: "ok", OrganizerKey: "org 1"})

	err := client.SendChat(context.Background(), "w1", "s/2", "r3", "hi there")
	gt.NoError(t, err)
	gt.Equal(t, "/G2W/rest/v2/organizers/org%201/webinars/w1/sessions/s%2F2/attendees/r3/chats", gotPath)
	gt.Equal(t, "application/json", gotType)
	gt.Equal(t, `{"message":"hi there"}`, gotBody)
}

func TestDoEmptySuccessBodyIsNil(t *testing.T) {
	fake := &fakeGoTo{valid: "ok", apiHandler: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}}
	client, _ := setup(t, fake, tokens.State{AccessToken: "ok", OrganizerKey: "org"})

	body, err := client.Do(context.Background(), http.MethodGet, "/webinars", nil)
	gt.NoError(t, err)
	gt.Equal(t, 0, len(body))
}
