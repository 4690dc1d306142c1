package middleware

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/labstack/echo/v4"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"

	DefaultRateLimitMax    = 100
	DefaultRateLimitWindow = time.Minute

	rateLimiterSweepInterval = 5 * time.Minute
)

// RateLimiter counts calls per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) Decision
	Close() error
}

type Decision struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}

type RateLimitConfig struct {
	Limiter  RateLimiter
	Max      int
	Window   time.Duration
	KeyFunc  func(c echo.Context) string
	Logger   *eventlog.Logger
	Counters *metrics.Counters
	Now      func() time.Time
}

// RateLimit rejects the call that exceeds Max inside Window for its key with
// RATE_LIMIT_EXCEEDED.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Max == 0 {
		cfg.Max = DefaultRateLimitMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimitWindow
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = RateLimitKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Limiter == nil || cfg.Max < 0 {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cfg.KeyFunc(c)
			decision := cfg.Limiter.Allow(ctx, key, cfg.Max, cfg.Window)

			remaining := cfg.Max - decision.Count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(cfg.Max))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(decision.WindowEnd.Unix(), 10))

			if decision.Allowed {
				return next(c)
			}

			retryAfter := decision.WindowEnd.Sub(cfg.Now())
			apiErr := apierr.RateLimited(retryAfter)
			h.Set(HeaderRetryAfter, strconv.Itoa(retrySeconds(retryAfter)))

			if cfg.Counters != nil && cfg.Counters.RateLimitHits != nil {
				cfg.Counters.RateLimitHits.Inc(routeLabel(c), rateMetricKey(key))
			}
			if cfg.Logger != nil {
				cfg.Logger.LogSecurityEvent(ctx, "rate limit exceeded", eventlog.SeverityMedium, map[string]any{
					"key":   key,
					"limit": cfg.Max,
				})
			}
			return apiErr
		}
	}
}

// RateLimitKey prefers the verified user, then the user hint, then the
// client address.
func RateLimitKey(c echo.Context) string {
	ctx := c.Request().Context()
	if id, ok := requestctx.Identity(ctx); ok && id.UserID != "" {
		return "user:" + id.UserID
	}
	if info, ok := requestctx.Info(ctx); ok && info.UserID != "" {
		return "hint:" + info.UserID
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func rateMetricKey(key string) string {
	if idx := strings.IndexRune(key, ':'); idx > 0 {
		return key[:idx]
	}
	if key == "" {
		return "unknown"
	}
	return key
}

func retrySeconds(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]rateState
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

type rateState struct {
	count     int
	windowEnd time.Time
}

type MemoryOption func(*MemoryRateLimiter)

func WithLimiterClock(now func() time.Time) MemoryOption {
	return func(rl *MemoryRateLimiter) {
		if now != nil {
			rl.now = now
		}
	}
}

// NewMemoryRateLimiter starts a limiter whose stale windows are swept every
// sweep interval until Close.
func NewMemoryRateLimiter(opts ...MemoryOption) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		entries: make(map[string]rateState),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}
	go rl.sweepLoop()
	return rl
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.entries[key]
	if !ok || !now.Before(state.windowEnd) {
		state = rateState{count: 1, windowEnd: now.Add(window)}
		rl.entries[key] = state
		return Decision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
	}
	if state.count >= limit {
		return Decision{Allowed: false, Count: state.count, WindowEnd: state.windowEnd}
	}
	state.count++
	rl.entries[key] = state
	return Decision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
}

// Len reports how many keys hold a window.
func (rl *MemoryRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Sweep drops every window that ended before now.
func (rl *MemoryRateLimiter) Sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, state := range rl.entries {
		if !now.Before(state.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

func (rl *MemoryRateLimiter) Close() error {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
	return nil
}

func (rl *MemoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-rl.stopCh:
			return
		}
	}
}
