package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RateLimiter counts calls per key in fixed hourly windows.
// A limit of zero or less disables limiting.
type RateLimiter struct {
	redis *redis.Client
	limit int64
}

func NewRateLimiter(rdb *redis.Client, limit int64) *RateLimiter {
	return &RateLimiter{redis: rdb, limit: limit}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error) {
	windowStart := now.UTC().Truncate(time.Hour)
	windowEnd := windowStart.Add(time.Hour)
	if r.limit <= 0 {
		return true, 0, windowEnd, nil
	}
	ttl := int64(windowEnd.Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	redisKey := fmt.Sprintf("empire:ratelimit:%s:%s", key, windowStart.Format("2006010215"))
	res, err := incrWithTTLScript.Run(ctx, r.redis, []string{redisKey}, ttl).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	return res <= r.limit, res, windowEnd, nil
}

// Deduplicator remembers keys for ttl. Used for Telegram update ids and chat
// Idempotency-Key headers.
type Deduplicator struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	return &Deduplicator{redis: rdb, ttl: ttl}
}

func (d *Deduplicator) MarkFirst(ctx context.Context, key string) (bool, error) {
	ok, err := d.redis.SetNX(ctx, "empire:dedupe:"+key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}

// Forget drops key so the next MarkFirst for it succeeds again.
func (d *Deduplicator) Forget(ctx context.Context, key string) error {
	if err := d.redis.Del(ctx, "empire:dedupe:"+key).Err(); err != nil {
		return fmt.Errorf("dedupe del: %w", err)
	}
	return nil
}
