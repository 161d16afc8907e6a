// Package messenger sends each attendee of a webinar session a chat message carrying their
// personal, affiliate-tagged checkout link.
package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/models"
	"github.com/aura-webinar/gtw-tools/internal/settings"
)

// DefaultDelay is the pause between attendees when no other pacing is configured.
const DefaultDelay = 300 * time.Millisecond

// API is the subset of the upstream client the messenger needs.
type API interface {
	ListAttendees(ctx context.Context, webinarKey string) (json.RawMessage, error)
	GetRegistrant(ctx context.Context, webinarKey, registrantKey string) (json.RawMessage, error)
	SendChat(ctx context.Context, webinarKey, sessionKey, registrantKey, message string) error
}

// SettingsSource supplies the checkout base URL at send time.
type SettingsSource interface {
	Get() settings.Settings
}

// Observer is told about every processed attendee and the final summary.
type Observer interface {
	SendProgress(p Progress)
	SendCompleted(s Summary)
}

// Progress describes one processed attendee of a run.
type Progress struct {
	RunID      string            `json:"runId"`
	WebinarKey string            `json:"webinarKey"`
	SessionKey string            `json:"sessionKey"`
	Index      int               `json:"index"`
	Total      int               `json:"total"`
	Result     models.SendResult `json:"result"`
}

// Summary is the outcome of a bulk send. Success+Failed always equals Total.
type Summary struct {
	RunID      string              `json:"runId"`
	WebinarKey string              `json:"-"`
	SessionKey string              `json:"-"`
	Total      int                 `json:"total"`
	Success    int                 `json:"success"`
	Failed     int                 `json:"failed"`
	Results    []models.SendResult `json:"results"`
}

func (s *Summary) add(r models.SendResult) {
	s.Results = append(s.Results, r)
	if r.Status == models.SendSuccess {
		s.Success++
	} else {
		s.Failed++
	}
}

type runIDKey struct{}

// WithRunID makes SendToAllAttendees report progress under id instead of a generated run id,
// so a dashboard can watch the run before starting it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Messenger runs bulk sends one attendee at a time.
type Messenger struct {
	api      API
	settings SettingsSource
	pacer    Pacer
	observer Observer
	logger   *zap.Logger
}

// New creates a messenger. A nil pacer waits DefaultDelay; observer may be nil.
func New(api API, src SettingsSource, pacer Pacer, observer Observer, logger *zap.Logger) *Messenger {
	if pacer == nil {
		pacer = FixedInterval(DefaultDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messenger{api: api, settings: src, pacer: pacer, observer: observer, logger: logger}
}

// SendToAllAttendees messages every attendee of the webinar in the given session.
// Only template validation and the attendee list fetch fail the whole run; any other
// failure is recorded against its attendee. If ctx ends, the attendees not yet processed
// are recorded as failed.
func (m *Messenger) SendToAllAttendees(ctx context.Context, webinarKey, sessionKey, template, defaultAffiliateID string) (*Summary, error) {
	if err := ValidateTemplate(template); err != nil {
		return nil, err
	}

	raw, err := m.api.ListAttendees(ctx, webinarKey)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	var attendees []models.Attendee
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &attendees); err != nil {
			return nil, fmt.Errorf("decode attendees: %w", err)
		}
	}

	sum := &Summary{
		RunID:      runID(ctx),
		WebinarKey: webinarKey,
		SessionKey: sessionKey,
		Total:      len(attendees),
		Results:    make([]models.SendResult, 0, len(attendees)),
	}
	base := m.settings.Get().BaseCheckoutURL
	log := m.logger.With(zap.String("run_id", sum.RunID), zap.String("webinar_key", webinarKey), zap.String("session_key", sessionKey))
	log.Info("bulk send started", zap.Int("attendees", len(attendees)))

	for i, a := range attendees {
		var res models.SendResult
		if err := m.pace(ctx, i); err != nil {
			res = failed(a.Email, err)
		} else {
			res = m.sendOne(ctx, webinarKey, sessionKey, template, base, defaultAffiliateID, a)
		}
		if res.Status == models.SendFailed {
			log.Warn("attendee message failed", zap.String("registrant_key", a.RegistrantKey.String()), zap.String("error", res.Error))
		}
		sum.add(res)
		if m.observer != nil {
			m.observer.SendProgress(Progress{
				RunID: sum.RunID, WebinarKey: webinarKey, SessionKey: sessionKey,
				Index: i, Total: sum.Total, Result: res,
			})
		}
	}

	log.Info("bulk send finished", zap.Int("success", sum.Success), zap.Int("failed", sum.Failed))
	if m.observer != nil {
		m.observer.SendCompleted(*sum)
	}
	return sum, nil
}

func (m *Messenger) pace(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if i == 0 {
		return nil
	}
	return m.pacer.Wait(ctx)
}

func (m *Messenger) sendOne(ctx context.Context, webinarKey, sessionKey, template, base, defaultAffiliateID string, a models.Attendee) models.SendResult {
	registrantKey := a.RegistrantKey.String()
	raw, err := m.api.GetRegistrant(ctx, webinarKey, registrantKey)
	if err != nil {
		return failed(a.Email, fmt.Errorf("get registrant: %w", err))
	}
	var reg models.Registrant
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &reg); err != nil {
			return failed(a.Email, fmt.Errorf("decode registrant: %w", err))
		}
	}

	affiliateID := ResolveAffiliateID(reg, defaultAffiliateID)
	msg, err := Personalize(template, CheckoutLink(base, affiliateID, a.Email))
	if err != nil {
		return failed(a.Email, err)
	}
	if err := m.api.SendChat(ctx, webinarKey, sessionKey, registrantKey, msg); err != nil {
		return failed(a.Email, fmt.Errorf("send chat: %w", err))
	}
	return models.SendResult{Email: a.Email, AffiliateID: affiliateID, Status: models.SendSuccess}
}

func failed(email string, err error) models.SendResult {
	return models.SendResult{Email: email, Status: models.SendFailed, Error: err.Error()}
}
