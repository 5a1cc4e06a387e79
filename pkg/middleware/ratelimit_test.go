package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/observability"
)

var windowStart = time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

func TestRateLimiterMinuteWindow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 3, PerHour: 100})
	now := windowStart.Add(10 * time.Second)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(context.Background(), "ip:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := rl.Allow(context.Background(), "ip:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, WindowMinute, d.Window)
	assert.Equal(t, windowStart.Add(time.Minute), d.Reset)

	// other clients are unaffected
	d, _ = rl.Allow(context.Background(), "ip:2")
	assert.True(t, d.Allowed)

	// next minute starts a fresh window
	now = windowStart.Add(time.Minute + time.Second)
	d, _ = rl.Allow(context.Background(), "ip:1")
	assert.True(t, d.Allowed)
}

func TestRateLimiterHourWindow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 2, PerHour: 3})
	now := windowStart
	rl.now = func() time.Time { return now }

	allowed := 0
	for minute := 0; minute < 4; minute++ {
		now = windowStart.Add(time.Duration(minute) * time.Minute)
		for i := 0; i < 2; i++ {
			d, _ := rl.Allow(context.Background(), "ip:1")
			if d.Allowed {
				allowed++
			} else {
				assert.Equal(t, WindowHour, d.Window)
			}
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 10, PerHour: 100})
	now := windowStart
	rl.now = func() time.Time { return now }

	_, _ = rl.Allow(context.Background(), "ip:1")
	_, _ = rl.Allow(context.Background(), "ip:2")
	assert.Equal(t, 2, rl.Len())
	assert.Equal(t, 0, rl.Cleanup())

	now = windowStart.Add(2 * time.Hour)
	_, _ = rl.Allow(context.Background(), "ip:3")
	assert.Equal(t, 2, rl.Cleanup())
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiterSetConfig(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{PerMinute: 1, PerHour: 10})
	rl.now = func() time.Time { return windowStart }

	d, _ := rl.Allow(context.Background(), "k")
	assert.True(t, d.Allowed)
	d, _ = rl.Allow(context.Background(), "k")
	assert.False(t, d.Allowed)

	rl.SetConfig(RateLimitConfig{PerMinute: 5, PerHour: 10})
	d, _ = rl.Allow(context.Background(), "k")
	assert.True(t, d.Allowed)
}

func TestDistributedRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewDistributedRateLimiter(client, RateLimitConfig{PerMinute: 2, PerHour: 10}, "")
	rl.now = func() time.Time { return windowStart }
	ctx := context.Background()

	d, err := rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	key := rl.windowKey(WindowMinute, "ip:1", windowStart)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 2*time.Minute, mr.TTL(key))

	require.NoError(t, rl.Reset(ctx, "ip:1"))
	d, err = rl.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestDistributedRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	rl := NewDistributedRateLimiter(client, RateLimitConfig{PerMinute: 1, PerHour: 1}, "test")
	d, err := rl.Allow(context.Background(), "ip:1")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("unavailable")
}

func (failingLimiter) SetConfig(RateLimitConfig) {}

func TestRateLimitMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	rl := NewRateLimiter(RateLimitConfig{PerMinute: 2, PerHour: 100})
	rl.now = func() time.Time { return windowStart.Add(30 * time.Second) }
	mw := NewRateLimitMiddleware(rl, nil, metrics)
	mw.now = rl.now

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/filtros/", nil)
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	w := serve("192.0.2.1:1000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(windowStart.Add(time.Minute).Unix(), 10), w.Header().Get("X-RateLimit-Reset"))

	serve("192.0.2.1:1001")
	w = serve("192.0.2.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"detail":"Too many requests"}`, w.Body.String())
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues(WindowMinute)))

	// a different client has its own window
	assert.Equal(t, http.StatusOK, serve("192.0.2.99:1000").Code)
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	mw := NewRateLimitMiddleware(failingLimiter{}, nil, nil)
	called := false
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
