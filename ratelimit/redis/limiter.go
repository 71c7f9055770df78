package redislimiter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var errBucketKey = errors.New("bucket and key required")

// Limit caps how many sends a key may make per window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is a Redis sliding-window limiter over sorted sets, shared by
// every process delivering alerts.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limits map[string]Limit
	now    func() time.Time
}

func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, prefix: "duekit:rl:", limits: limits, now: time.Now}
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

// AllowNamed matches notify.RateLimiter. A nil limiter allows everything.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, errBucketKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lim := l.limitFor(bucket)
	nowMs := l.now().UnixMilli()
	cutoff := nowMs - lim.Window.Milliseconds()
	zkey := l.prefix + bucket + ":" + key
	member := strconv.FormatInt(l.now().UnixNano(), 10)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(nowMs), Member: member})
	count := pipe.ZCard(ctx, zkey)
	pipe.PExpire(ctx, zkey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if count.Val() > int64(lim.Limit) {
		// Over the limit: drop the attempt so denials do not extend the window.
		l.rdb.ZRem(ctx, zkey, member)
		return false, nil
	}
	return true, nil
}
