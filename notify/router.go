package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BucketEmail is the rate-limit bucket for outbound alert emails, keyed by recipient.
const BucketEmail = "email"

// Mailer sends alert emails. Transport is the host's concern.
type Mailer interface {
	SendDeadlineAlert(ctx context.Context, userID string, e Event) error
}

// RateLimiter matches the limiters in ratelimit/memory and ratelimit/redis.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// Router picks delivery channels for an event. Every event goes in-app;
// an assigned event is also emailed when the assignee is offline, their
// preferences allow the category, and the email limiter has room.
type Router struct {
	InApp       Sink
	Mailer      Mailer
	Presence    Presence
	Preferences Preferences
	Limiter     RateLimiter
	Logger      logrus.FieldLogger
}

func (r *Router) log() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

type retryKey struct{}

// WithRetry marks ctx as carrying a redelivery of an event whose email
// already passed the rate limiter once.
func WithRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, true)
}

func isRetry(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey{}).(bool)
	return v
}

// Notify implements Sink by running both channels. Callers that retry
// failures should retry DeliverInApp and DeliverEmail separately so a
// failed email never repeats the in-app notification.
func (r *Router) Notify(ctx context.Context, e Event, category Category) error {
	return errors.Join(r.DeliverInApp(ctx, e, category), r.DeliverEmail(ctx, e, category))
}

// DeliverInApp sends e to the in-app sink only.
func (r *Router) DeliverInApp(ctx context.Context, e Event, category Category) error {
	if r.InApp == nil {
		return nil
	}
	if err := r.InApp.Notify(ctx, e, category); err != nil {
		return fmt.Errorf("in-app delivery: %w", err)
	}
	return nil
}

// DeliverEmail emails the assignee when presence, preferences and the
// limiter allow it. Under WithRetry the limiter is not consulted again.
func (r *Router) DeliverEmail(ctx context.Context, e Event, category Category) error {
	if r.Mailer == nil || e.AssignedTo == "" {
		return nil
	}
	log := r.log().WithFields(logrus.Fields{"event_id": e.ID, "assigned_to": e.AssignedTo})

	if r.Presence != nil {
		offline, err := r.Presence.IsUserOffline(ctx, e.AssignedTo)
		if err != nil {
			// Unknown presence: prefer the email over a silently dropped alert.
			log.WithError(err).Warn("presence lookup failed")
		} else if !offline {
			return nil
		}
	}
	if r.Preferences != nil {
		prefs, err := r.Preferences.EmailPreferences(ctx, e.AssignedTo)
		if err != nil {
			return fmt.Errorf("email preferences: %w", err)
		}
		if !prefs.Allows(category) {
			log.Debug("email suppressed by preferences")
			return nil
		}
	}
	if r.Limiter != nil && !isRetry(ctx) {
		ok, err := r.Limiter.AllowNamed(BucketEmail, e.AssignedTo)
		if err != nil {
			log.WithError(err).Warn("email rate limiter failed")
		} else if !ok {
			log.Info("email suppressed by rate limit")
			return nil
		}
	}
	if err := r.Mailer.SendDeadlineAlert(ctx, e.AssignedTo, e); err != nil {
		return fmt.Errorf("email delivery: %w", err)
	}
	return nil
}

// LogMailer records alert emails in the log instead of sending them. It
// stands in until the host supplies a real transport.
type LogMailer struct {
	Logger logrus.FieldLogger
}

func (m LogMailer) SendDeadlineAlert(_ context.Context, userID string, e Event) error {
	log := m.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"to":       userID,
		"event_id": e.ID,
		"severity": e.Severity,
	}).Info("deadline alert email: " + e.Message)
	return nil
}
