package redisstore

import (
	"context"
	"time"

	"github.com/PaulFidika/duekit/deadlines"
	"github.com/redis/go-redis/v9"
)

// Ledger stores claimed (entity, threshold) keys in Redis. Keys never
// expire; several engine processes may share one ledger.
type Ledger struct {
	rdb   *redis.Client
	keyNS string
	now   func() time.Time
}

// NewLedger creates a Redis-backed dedup ledger.
func NewLedger(rdb *redis.Client, keyPrefix string) *Ledger {
	if keyPrefix == "" {
		keyPrefix = "duekit:ledger:"
	}
	return &Ledger{rdb: rdb, keyNS: keyPrefix, now: time.Now}
}

func (l *Ledger) key(k deadlines.Key) string { return l.keyNS + k.String() }

// Claim sets the key with SETNX; only the first caller gets true.
func (l *Ledger) Claim(ctx context.Context, k deadlines.Key) (bool, error) {
	return l.rdb.SetNX(ctx, l.key(k), l.now().UTC().Format(time.RFC3339), 0).Result()
}

func (l *Ledger) Contains(ctx context.Context, k deadlines.Key) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key(k)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
