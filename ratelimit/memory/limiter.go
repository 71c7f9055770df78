package memorylimiter

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var errBucketKey = errors.New("bucket and key required")

// sweepInterval bounds how often AllowNamed scans for idle keys.
const sweepInterval = time.Minute

// Limit caps how many sends a key may make per window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is an in-memory sliding-window limiter for outbound alert
// channels, keyed by (bucket, recipient). Single-node fallback for the
// Redis limiter.
type Limiter struct {
	mu        sync.Mutex
	now       func() time.Time
	limits    map[string]Limit
	windows   map[string][]time.Time
	lastSweep time.Time
}

// New constructs a limiter. Buckets without a limit use limits["default"],
// then 20 per hour.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{now: time.Now, limits: limits, windows: make(map[string][]time.Time)}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 20, Window: time.Hour}
}

// AllowNamed records a send for key in bucket when under the limit.
// Denied attempts are not recorded.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, errBucketKey
	}
	lim := l.limitFor(bucket)
	id := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}
	cutoff := now.Add(-lim.Window)
	sent := l.windows[id]
	i := 0
	for i < len(sent) && !sent[i].After(cutoff) {
		i++
	}
	sent = sent[i:]

	if len(sent) >= lim.Limit {
		if len(sent) == 0 {
			delete(l.windows, id)
		} else {
			l.windows[id] = sent
		}
		return false, nil
	}
	l.windows[id] = append(sent, now)
	return true, nil
}

// sweep drops keys whose newest send has left their bucket's window.
// Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	l.lastSweep = now
	for id, sent := range l.windows {
		bucket, _, _ := strings.Cut(id, ":")
		if len(sent) == 0 || !sent[len(sent)-1].After(now.Add(-l.limitFor(bucket).Window)) {
			delete(l.windows, id)
		}
	}
}
