package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Sink delivers events (in-app toast, email, queue, ...).
// Implementations own their retry policy; callers treat a returned error as
// a delivery failure to log, not as a reason to re-send.
type Sink interface {
	Notify(ctx context.Context, event Event, category Category) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event, category Category) error

func (f SinkFunc) Notify(ctx context.Context, event Event, category Category) error {
	return f(ctx, event, category)
}

// Presence reports whether a user is currently reachable in-app.
type Presence interface {
	IsUserOffline(ctx context.Context, userID string) (bool, error)
}

// Preferences looks up per-user email preferences.
type Preferences interface {
	EmailPreferences(ctx context.Context, userID string) (EmailPreferences, error)
}

// EmailPreferences controls which categories may be sent by email.
// A nil Categories map allows every category.
type EmailPreferences struct {
	Enabled    bool              `json:"enabled" yaml:"enabled"`
	Categories map[Category]bool `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Allows reports whether an email for category c is wanted.
func (p EmailPreferences) Allows(c Category) bool {
	if !p.Enabled {
		return false
	}
	if p.Categories == nil {
		return true
	}
	allowed, ok := p.Categories[c]
	return !ok || allowed
}

// LogSink writes every event to a logrus logger. It never fails.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Notify(_ context.Context, e Event, category Category) error {
	log := s.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithFields(logrus.Fields{
		"event_id":       e.ID,
		"entity_id":      e.EntityID,
		"days_remaining": e.DaysRemaining,
		"severity":       e.Severity,
		"category":       category,
		"assigned_to":    e.AssignedTo,
	})
	switch e.Severity {
	case SeverityError:
		entry.Error(e.Message)
	case SeverityWarning:
		entry.Warn(e.Message)
	default:
		entry.Info(e.Message)
	}
	return nil
}

// Fanout delivers to every sink in order and joins their errors.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, e Event, category Category) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, e, category); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
