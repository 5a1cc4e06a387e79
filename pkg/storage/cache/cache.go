// Package cache puts a two-tier read cache in front of the catalogue repository:
// an in-process expirable LRU (L1) backed by an optional shared Redis (L2).
package cache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/filtros/pkg/observability"
)

const keyPrefix = "filtros:"

// Observer receives hit and miss events; *observability.Metrics implements it.
type Observer interface {
	CacheHit(cacheType, keyType string)
	CacheMiss(cacheType, keyType string)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string, string)  {}
func (nopObserver) CacheMiss(string, string) {}

// Options configures a Cache.
type Options struct {
	Size     int
	TTL      time.Duration
	Redis    *redis.Client
	Observer Observer
	Logger   *observability.Logger
}

// Stats counts L1/L2 lookups since creation.
type Stats struct {
	L1Hits  int64   `json:"l1_hits"`
	L2Hits  int64   `json:"l2_hits"`
	Misses  int64   `json:"misses"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// Cache stores encoded values under string keys in both tiers.
type Cache struct {
	l1       *lru.LRU[string, []byte]
	redis    *redis.Client
	ttl      time.Duration
	observer Observer
	logger   *observability.Logger

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

// New creates a cache. A nil Redis client leaves only the in-process tier.
func New(opts Options) *Cache {
	if opts.Size < 16 {
		opts.Size = 16
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Cache{
		l1:       lru.NewLRU[string, []byte](opts.Size, nil, opts.TTL),
		redis:    opts.Redis,
		ttl:      opts.TTL,
		observer: opts.Observer,
		logger:   opts.Logger.WithField("component", "cache"),
	}
}

// keyType is the first segment of a key, used as a metrics label.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// Get looks key up in L1 then L2, promoting L2 hits into L1.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	kt := keyType(key)

	if v, ok := c.l1.Get(key); ok {
		c.l1Hits.Add(1)
		c.observer.CacheHit("l1", kt)
		return v, true
	}
	c.observer.CacheMiss("l1", kt)

	if c.redis != nil {
		v, err := c.redis.Get(ctx, keyPrefix+key).Bytes()
		switch {
		case err == nil:
			c.l2Hits.Add(1)
			c.observer.CacheHit("redis", kt)
			c.l1.Add(key, v)
			return v, true
		case err != redis.Nil:
			c.logger.WithError(err).WithField("key", key).Warn("Redis get failed")
		}
		c.observer.CacheMiss("redis", kt)
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores value in both tiers. Redis failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	c.l1.Add(key, value)
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis set failed")
	}
}

// Delete removes keys from both tiers.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		c.l1.Remove(k)
		full = append(full, keyPrefix+k)
	}
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, full...).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis delete failed")
	}
}

// DeletePrefix removes every key starting with prefix from both tiers.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) {
	for _, k := range c.l1.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.l1.Remove(k)
		}
	}
	if c.redis == nil {
		return
	}

	iter := c.redis.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			c.redis.Del(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		c.redis.Del(ctx, batch...)
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).WithField("prefix", prefix).Warn("Redis scan failed")
	}
}

// Purge empties the in-process tier.
func (c *Cache) Purge() {
	c.l1.Purge()
}

// Stats returns lookup counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		L1Hits: c.l1Hits.Load(),
		L2Hits: c.l2Hits.Load(),
		Misses: c.misses.Load(),
		Items:  c.l1.Len(),
	}
	if total := s.L1Hits + s.L2Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.L1Hits+s.L2Hits) / float64(total)
	}
	return s
}
