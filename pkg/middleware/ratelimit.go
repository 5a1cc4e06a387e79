package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// TooManyRequestsMessage is the body detail of a 429 response
const TooManyRequestsMessage = "Too many requests"

const (
	WindowMinute = "minute"
	WindowHour   = "hour"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// PerMinute is the max requests per client in a calendar minute
	PerMinute int
	// PerHour is the max requests per client in a calendar hour
	PerHour int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{PerMinute: 1000, PerHour: 10000}
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed   bool
	Window    string // window that decided: minute unless the hour limit was hit
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	SetConfig(cfg RateLimitConfig)
}

// decide turns post-increment window counts into a Decision
func decide(cfg RateLimitConfig, minuteCount, hourCount int64, minuteStart, hourStart time.Time) Decision {
	if minuteCount > int64(cfg.PerMinute) {
		return Decision{Window: WindowMinute, Limit: cfg.PerMinute, Reset: minuteStart.Add(time.Minute)}
	}
	if hourCount > int64(cfg.PerHour) {
		return Decision{Window: WindowHour, Limit: cfg.PerHour, Reset: hourStart.Add(time.Hour)}
	}
	remaining := int64(cfg.PerMinute) - minuteCount
	if hourLeft := int64(cfg.PerHour) - hourCount; hourLeft < remaining {
		remaining = hourLeft
	}
	return Decision{
		Allowed:   true,
		Window:    WindowMinute,
		Limit:     cfg.PerMinute,
		Remaining: int(remaining),
		Reset:     minuteStart.Add(time.Minute),
	}
}

type windowCounts struct {
	minuteStart time.Time
	minute      int64
	hourStart   time.Time
	hour        int64
}

// RateLimiter implements fixed-window rate limiting in memory
type RateLimiter struct {
	mu      sync.Mutex
	config  RateLimitConfig
	entries map[string]*windowCounts
	now     func() time.Time
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  config,
		entries: make(map[string]*windowCounts),
		now:     time.Now,
	}
}

// SetConfig replaces the limits; existing counts are kept
func (rl *RateLimiter) SetConfig(cfg RateLimitConfig) {
	rl.mu.Lock()
	rl.config = cfg
	rl.mu.Unlock()
}

// Allow counts a request for key and reports whether it fits both windows
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	minuteStart := now.Truncate(time.Minute)
	hourStart := now.Truncate(time.Hour)

	e, ok := rl.entries[key]
	if !ok {
		e = &windowCounts{}
		rl.entries[key] = e
	}
	if !e.minuteStart.Equal(minuteStart) {
		e.minuteStart, e.minute = minuteStart, 0
	}
	if !e.hourStart.Equal(hourStart) {
		e.hourStart, e.hour = hourStart, 0
	}
	e.minute++
	e.hour++

	return decide(rl.config, e.minute, e.hour, minuteStart, hourStart), nil
}

// Cleanup drops keys whose hour window has ended and returns how many were removed
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	current := rl.now().Truncate(time.Hour)
	removed := 0
	for key, e := range rl.entries {
		if e.hourStart.Before(current) {
			delete(rl.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// RateLimitMiddleware provides HTTP rate limiting per client IP
type RateLimitMiddleware struct {
	limiter Limiter
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRateLimitMiddleware creates a new rate limit middleware. metrics may be nil.
func NewRateLimitMiddleware(limiter Limiter, logger *observability.Logger, metrics *observability.Metrics) *RateLimitMiddleware {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger.WithField("component", "ratelimit"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := ClientIPFromRequest(r)

		d, err := m.limiter.Allow(ctx, "ip:"+ip)
		if err != nil {
			m.logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			m.rateLimitExceeded(w, r, ip, d)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, ip string, d Decision) {
	ctx := r.Context()
	retryAfter := int(math.Ceil(d.Reset.Sub(m.now()).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	if m.metrics != nil {
		m.metrics.RateLimitedTotal.WithLabelValues(d.Window).Inc()
	}
	m.logger.WithFields(map[string]interface{}{
		"client_ip": ip,
		"window":    d.Window,
	}).Warn("Rate limit exceeded")
	_ = audit.FromContext(ctx).Log(ctx, &audit.AuditEvent{
		EventType: audit.EventTypeRateLimitExceeded,
		Status:    audit.EventStatusDenied,
		Method:    r.Method,
		Path:      r.URL.Path,
		IPAddress: ip,
		Message:   "rate limit exceeded",
		Metadata:  map[string]interface{}{"window": d.Window, "limit": d.Limit},
	})

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteTooManyRequests(w, TooManyRequestsMessage)
}
