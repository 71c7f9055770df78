package memorystore

import (
	"context"
	"sync"

	"github.com/PaulFidika/duekit/notify"
)

// Preferences is an in-memory notify.Preferences. Users without an entry
// get the default.
type Preferences struct {
	mu    sync.RWMutex
	def   notify.EmailPreferences
	users map[string]notify.EmailPreferences
}

func NewPreferences(def notify.EmailPreferences) *Preferences {
	return &Preferences{def: def, users: make(map[string]notify.EmailPreferences)}
}

// Set replaces the preferences of userID.
func (p *Preferences) Set(userID string, prefs notify.EmailPreferences) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = prefs
}

func (p *Preferences) EmailPreferences(ctx context.Context, userID string) (notify.EmailPreferences, error) {
	_ = ctx
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.users[userID]; ok {
		return v, nil
	}
	return p.def, nil
}
