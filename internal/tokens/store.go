// Package tokens owns the GoToWebinar OAuth token state and its persistence.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/models"
	"github.com/aura-webinar/gtw-tools/internal/persist"
)

// State is the persisted OAuth token state. Empty strings mean "not set".
type State struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	OrganizerKey string `json:"organizerKey"`
}

// UnmarshalJSON accepts organizerKey as a string or a bare number, as older token files hold it.
func (s *State) UnmarshalJSON(data []byte) error {
	type plain State
	var doc struct {
		plain
		OrganizerKey models.Key `json:"organizerKey"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = State(doc.plain)
	s.OrganizerKey = doc.OrganizerKey.String()
	return nil
}

// HasAccessToken reports whether requests can be authenticated.
func (s State) HasAccessToken() bool { return s.AccessToken != "" }

// HasRefreshToken reports whether a refresh can be attempted.
func (s State) HasRefreshToken() bool { return s.RefreshToken != "" }

// Store holds the current token state in memory and writes it through to a persist.Backend.
// saveMu orders writers so the backend always ends up with the last state set.
type Store struct {
	saveMu  sync.Mutex
	mu      sync.RWMutex
	state   State
	backend persist.Backend
	key     string
	logger  *zap.Logger
}

// NewStore creates a store seeded with seed (usually from env). Call Load to apply persisted state.
func NewStore(backend persist.Backend, key string, seed State, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{state: seed, backend: backend, key: key, logger: logger}
}

// Load replaces the seed with persisted state when a saved document exists.
// A missing document keeps the seed; an unreadable one is an error.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx, s.key)
	if errors.Is(err, persist.ErrNotFound) {
		s.logger.Info("no persisted tokens, using environment", zap.Bool("has_access_token", s.Get().HasAccessToken()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode tokens: %w", err)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Info("tokens loaded", zap.String("key", s.key), zap.String("organizer_key", st.OrganizerKey))
	return nil
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the state and persists it. Persistence failures are logged, not returned:
// the in-memory state stays authoritative for this process.
func (s *Store) Set(ctx context.Context, st State) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		s.logger.Error("encode tokens", zap.Error(err))
		return
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.logger.Error("save tokens", zap.Error(err), zap.String("key", s.key))
	}
}
