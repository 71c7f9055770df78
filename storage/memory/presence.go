package memorystore

import (
	"context"
	"sync"
	"time"
)

// Presence is an in-memory implementation of notify.Presence. A user is
// online for ttl after their last heartbeat.
type Presence struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	seen   map[string]time.Time
	closed chan struct{}
}

// NewPresence creates an in-memory presence tracker with the given TTL.
// If ttl <= 0, a default of 2 minutes is used.
// Starts a background goroutine to drop stale users every minute.
func NewPresence(ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	p := &Presence{ttl: ttl, now: time.Now, seen: make(map[string]time.Time), closed: make(chan struct{})}
	go p.cleanupLoop()
	return p
}

// Touch records a heartbeat for userID.
func (p *Presence) Touch(ctx context.Context, userID string) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[userID] = p.now().Add(p.ttl)
	return nil
}

func (p *Presence) IsUserOffline(ctx context.Context, userID string) (bool, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.seen[userID]
	if !ok {
		return true, nil
	}
	if p.now().After(exp) {
		delete(p.seen, userID)
		return true, nil
	}
	return false, nil
}

func (p *Presence) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.cleanup()
		case <-p.closed:
			return
		}
	}
}

func (p *Presence) cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for k, exp := range p.seen {
		if now.After(exp) {
			delete(p.seen, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (p *Presence) Close() error {
	close(p.closed)
	return nil
}
