package deadlines

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
)

// ErrLedgerUnavailable wraps ledger failures reported as skipped entities.
var ErrLedgerUnavailable = errors.New("dedup ledger unavailable")

// Key identifies one (entity, threshold) alert.
type Key struct {
	EntityID      string `json:"entity_id"`
	DaysRemaining int    `json:"days_remaining"`
}

func (k Key) String() string { return k.EntityID + "#" + strconv.Itoa(k.DaysRemaining) }

// Ledger is the append-only record of alerts already decided.
// Claim must be atomic: exactly one caller ever sees true for a key.
type Ledger interface {
	Claim(ctx context.Context, key Key) (bool, error)
	Contains(ctx context.Context, key Key) (bool, error)
}

// MemoryLedger is a process-local Ledger. It only grows.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[Key]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[Key]struct{})}
}

func (l *MemoryLedger) Claim(_ context.Context, key Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.keys[key]; ok {
		return false, nil
	}
	l.keys[key] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Contains(_ context.Context, key Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok, nil
}

// Len returns the number of recorded keys.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Keys returns the recorded keys ordered by entity then days remaining.
func (l *MemoryLedger) Keys() []Key {
	l.mu.Lock()
	out := make([]Key, 0, len(l.keys))
	for k := range l.keys {
		out = append(out, k)
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].DaysRemaining > out[j].DaysRemaining
	})
	return out
}
