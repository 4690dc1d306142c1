package middleware

import (
	"context"
	"time"

	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	redisKeyPrefix   = "jewelcrm:ratelimit:"
	redisCallTimeout = 250 * time.Millisecond
	redisPingTimeout = 2 * time.Second
)

// RedisRateLimiter shares fixed windows across instances. Redis failures let
// the request through.
type RedisRateLimiter struct {
	client  redis.Cmdable
	closer  func() error
	prefix  string
	timeout time.Duration
}

func NewRedisRateLimiter(ctx context.Context, addr, password string, db int) (*RedisRateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errorsUtils.WrapPathErr(err)
	}

	rl := NewRedisRateLimiterFromClient(client)
	rl.closer = client.Close
	return rl, nil
}

func NewRedisRateLimiterFromClient(client redis.Cmdable) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:  client,
		prefix:  redisKeyPrefix,
		timeout: redisCallTimeout,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.logRedisError("incr", err)
		return Decision{Allowed: true, WindowEnd: time.Now().Add(window)}
	}
	// A key without a TTL would never reset, so the expiry is re-armed on any
	// call that finds it missing, not only on the first one.
	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	switch {
	case err != nil:
		rl.logRedisError("ttl", err)
		ttl = window
	case ttl < 0:
		if err := rl.client.Expire(ctx, redisKey, window).Err(); err != nil {
			rl.logRedisError("expire", err)
		}
		ttl = window
	case ttl == 0:
		ttl = window
	}

	return Decision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: time.Now().Add(ttl),
	}
}

func (rl *RedisRateLimiter) Close() error {
	if rl.closer != nil {
		return rl.closer()
	}
	return nil
}

func (rl *RedisRateLimiter) logRedisError(op string, err error) {
	log.WithFields(log.Fields{
		"op":    op,
		"error": err,
	}).Error("Redis rate limiter error")
}
