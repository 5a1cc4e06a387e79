package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter implements fixed-window rate limiting using Redis
// This allows rate limits to be shared across multiple instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	prefix string
	now    func() time.Time

	mu     sync.RWMutex
	config RateLimitConfig
}

var _ Limiter = (*DistributedRateLimiter)(nil)

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config RateLimitConfig, prefix string) *DistributedRateLimiter {
	if prefix == "" {
		prefix = "filtros:ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
		config: config,
	}
}

// SetConfig replaces the limits
func (rl *DistributedRateLimiter) SetConfig(cfg RateLimitConfig) {
	rl.mu.Lock()
	rl.config = cfg
	rl.mu.Unlock()
}

func (rl *DistributedRateLimiter) windowKey(window, key string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", rl.prefix, window, key, start.Unix())
}

// Allow increments both window counters in one pipeline. On Redis errors the
// returned Decision allows the request and err is set.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rl.mu.RLock()
	cfg := rl.config
	rl.mu.RUnlock()

	now := rl.now()
	minuteStart := now.Truncate(time.Minute)
	hourStart := now.Truncate(time.Hour)
	minuteKey := rl.windowKey(WindowMinute, key, minuteStart)
	hourKey := rl.windowKey(WindowHour, key, hourStart)

	pipe := rl.redis.Pipeline()
	minuteIncr := pipe.Incr(ctx, minuteKey)
	pipe.Expire(ctx, minuteKey, 2*time.Minute)
	hourIncr := pipe.Incr(ctx, hourKey)
	pipe.Expire(ctx, hourKey, 2*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{
			Allowed:   true,
			Window:    WindowMinute,
			Limit:     cfg.PerMinute,
			Remaining: cfg.PerMinute,
			Reset:     minuteStart.Add(time.Minute),
		}, fmt.Errorf("redis error: %w", err)
	}

	return decide(cfg, minuteIncr.Val(), hourIncr.Val(), minuteStart, hourStart), nil
}

// Reset clears the current windows for a key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	now := rl.now()
	return rl.redis.Del(ctx,
		rl.windowKey(WindowMinute, key, now.Truncate(time.Minute)),
		rl.windowKey(WindowHour, key, now.Truncate(time.Hour)),
	).Err()
}
