package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/controller/http/middleware"
	"github.com/labstack/echo/v4"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	rl := middleware.NewMemoryRateLimiter(middleware.WithLimiterClock(clock.Now))
	defer rl.Close()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := rl.Allow(ctx, "user:1", 3, time.Minute)
		require.True(t, d.Allowed, "call %d", i)
		assert.Equal(t, i, d.Count)
	}

	denied := rl.Allow(ctx, "user:1", 3, time.Minute)
	assert.False(t, denied.Allowed)
	assert.Equal(t, clock.Now().Add(time.Minute), denied.WindowEnd)

	other := rl.Allow(ctx, "user:2", 3, time.Minute)
	assert.True(t, other.Allowed)

	clock.Advance(time.Minute)
	reset := rl.Allow(ctx, "user:1", 3, time.Minute)
	assert.True(t, reset.Allowed)
	assert.Equal(t, 1, reset.Count)
}

func TestMemoryRateLimiter_NonPositiveLimit(t *testing.T) {
	rl := middleware.NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow(context.Background(), "k", 0, time.Minute).Allowed)
	}
	assert.Zero(t, rl.Len())
}

func TestMemoryRateLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	rl := middleware.NewMemoryRateLimiter(middleware.WithLimiterClock(clock.Now))
	defer rl.Close()
	ctx := context.Background()

	rl.Allow(ctx, "short", 10, time.Second)
	rl.Allow(ctx, "long", 10, time.Hour)
	require.Equal(t, 2, rl.Len())

	clock.Advance(2 * time.Second)
	rl.Sweep()

	assert.Equal(t, 1, rl.Len())
}

func TestRateLimit_RejectsCallAboveMax(t *testing.T) {
	clock := newFakeClock()
	s := newStack()
	limiter := middleware.NewMemoryRateLimiter(middleware.WithLimiterClock(clock.Now))
	defer limiter.Close()

	g := s.echo.Group("/api", middleware.RateLimit(middleware.RateLimitConfig{
		Limiter:  limiter,
		Max:      2,
		Window:   time.Minute,
		Logger:   s.logger,
		Counters: s.counters,
		Now:      clock.Now,
	}))
	g.GET("/items", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set(middleware.HeaderUserID, "u-7")
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)
		return rec
	}

	first := call()
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get(middleware.HeaderRateLimitLimit))
	assert.Equal(t, "1", first.Header().Get(middleware.HeaderRateLimitRemaining))

	assert.Equal(t, http.StatusNoContent, call().Code)

	third := call()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get(middleware.HeaderRateLimitRemaining))
	assert.Equal(t, "60", third.Header().Get(middleware.HeaderRetryAfter))
	assert.Equal(t, strconv.FormatInt(clock.Now().Add(time.Minute).Unix(), 10), third.Header().Get(middleware.HeaderRateLimitReset))

	env := decodeEnvelope(t, third)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apierr.CodeRateLimitExceeded), env.Error.Code)
	assert.EqualValues(t, 60, env.Error.Details["retryAfter"])

	clock.Advance(time.Minute)
	assert.Equal(t, http.StatusNoContent, call().Code)
}

func TestRateLimitKey(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "ip:203.0.113.9", middleware.RateLimitKey(c))
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	rl := middleware.NewRedisRateLimiterFromClient(client)

	d := rl.Allow(context.Background(), "user:1", 1, time.Minute)

	assert.True(t, d.Allowed)
}

// flakyRedis keeps counters in memory and fails the first failExpire EXPIRE
// calls. Commands it does not override panic through the nil Cmdable.
type flakyRedis struct {
	redis.Cmdable

	mu         sync.Mutex
	now        func() time.Time
	counters   map[string]int64
	expiry     map[string]time.Time
	failExpire int
}

func newFlakyRedis(now func() time.Time, failExpire int) *flakyRedis {
	return &flakyRedis{
		now:        now,
		counters:   map[string]int64{},
		expiry:     map[string]time.Time{},
		failExpire: failExpire,
	}
}

func (f *flakyRedis) evict(key string) {
	if at, ok := f.expiry[key]; ok && !f.now().Before(at) {
		delete(f.counters, key)
		delete(f.expiry, key)
	}
}

func (f *flakyRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evict(key)
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *flakyRedis) TTL(_ context.Context, key string) *redis.DurationCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evict(key)
	if _, ok := f.counters[key]; !ok {
		return redis.NewDurationResult(-2, nil)
	}
	at, ok := f.expiry[key]
	if !ok {
		return redis.NewDurationResult(-1, nil)
	}
	return redis.NewDurationResult(at.Sub(f.now()), nil)
}

func (f *flakyRedis) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExpire > 0 {
		f.failExpire--
		return redis.NewBoolResult(false, errors.New("i/o timeout"))
	}
	f.expiry[key] = f.now().Add(d)
	return redis.NewBoolResult(true, nil)
}

func TestRedisRateLimiter_RearmsLostExpiry(t *testing.T) {
	clock := newFakeClock()
	client := newFlakyRedis(clock.Now, 1)
	rl := middleware.NewRedisRateLimiterFromClient(client)
	ctx := context.Background()

	denied := 0
	for i := 0; i < 10; i++ {
		if !rl.Allow(ctx, "user:1", 3, time.Minute).Allowed {
			denied++
		}
	}
	assert.Equal(t, 7, denied)
	assert.Contains(t, client.expiry, "jewelcrm:ratelimit:user:1")

	clock.Advance(time.Minute)
	d := rl.Allow(ctx, "user:1", 3, time.Minute)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	rl := middleware.NewRedisRateLimiterFromClient(newFlakyRedis(clock.Now, 0))
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		d := rl.Allow(ctx, "ip:203.0.113.9", 2, time.Minute)
		require.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}
	assert.False(t, rl.Allow(ctx, "ip:203.0.113.9", 2, time.Minute).Allowed)

	clock.Advance(time.Minute)
	assert.True(t, rl.Allow(ctx, "ip:203.0.113.9", 2, time.Minute).Allowed)
}
