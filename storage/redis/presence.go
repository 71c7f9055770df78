package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence tracks online users as expiring Redis keys.
type Presence struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewPresence(rdb *redis.Client, keyPrefix string, ttl time.Duration) *Presence {
	if keyPrefix == "" {
		keyPrefix = "duekit:presence:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Presence{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (p *Presence) key(userID string) string { return p.keyNS + userID }

// Touch records a heartbeat for userID.
func (p *Presence) Touch(ctx context.Context, userID string) error {
	return p.rdb.Set(ctx, p.key(userID), 1, p.ttl).Err()
}

func (p *Presence) IsUserOffline(ctx context.Context, userID string) (bool, error) {
	n, err := p.rdb.Exists(ctx, p.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
