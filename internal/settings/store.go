// Package settings owns the dashboard's mutable messaging settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/persist"
)

// DefaultMessageTemplate is used until a template is saved.
const DefaultMessageTemplate = "Here is your personal checkout link: {{checkoutLink}}"

// DefaultAffiliateID is used until an affiliate id is saved.
const DefaultAffiliateID = "default"

// Settings are the messaging defaults edited from the dashboard.
type Settings struct {
	MessageTemplate    string `json:"messageTemplate"`
	DefaultAffiliateID string `json:"defaultAffiliateId"`
	BaseCheckoutURL    string `json:"baseCheckoutUrl"`
}

// Defaults returns the initial settings for a checkout base URL.
func Defaults(baseCheckoutURL string) Settings {
	return Settings{
		MessageTemplate:    DefaultMessageTemplate,
		DefaultAffiliateID: DefaultAffiliateID,
		BaseCheckoutURL:    baseCheckoutURL,
	}
}

// Store holds the current settings and writes every change through to a persist.Backend.
type Store struct {
	saveMu   sync.Mutex // held from mutation through persistence
	mu       sync.RWMutex
	settings Settings
	backend  persist.Backend
	key      string
	logger   *zap.Logger
}

// NewStore creates a settings store starting from defaults.
func NewStore(backend persist.Backend, key string, defaults Settings, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{settings: defaults, backend: backend, key: key, logger: logger}
}

// Load replaces the defaults with the persisted document, if any.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx, s.key)
	if errors.Is(err, persist.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	var st Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
	s.logger.Info("settings loaded", zap.String("key", s.key))
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies the non-empty fields of patch, persists the result and returns it.
// Last writer wins; the template is not validated here.
func (s *Store) Update(ctx context.Context, patch Settings) Settings {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if patch.MessageTemplate != "" {
		s.settings.MessageTemplate = patch.MessageTemplate
	}
	if patch.DefaultAffiliateID != "" {
		s.settings.DefaultAffiliateID = patch.DefaultAffiliateID
	}
	if patch.BaseCheckoutURL != "" {
		s.settings.BaseCheckoutURL = patch.BaseCheckoutURL
	}
	updated := s.settings
	s.mu.Unlock()

	data, err := json.Marshal(updated)
	if err != nil {
		s.logger.Error("encode settings", zap.Error(err))
		return updated
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.logger.Error("save settings", zap.Error(err), zap.String("key", s.key))
	}
	return updated
}
