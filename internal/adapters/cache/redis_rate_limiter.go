package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

const rateLimitPrefix = "ratelimit:"

// noExpiry is what PTTL reports for a key that exists without a TTL
const noExpiry = time.Duration(-1)

// windowCounter is the subset of Redis commands a fixed window needs
type windowCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisRateLimiter is a fixed-window counter: the first hit in a window sets
// the expiry and every hit increments the count.
type RedisRateLimiter struct {
	rdb windowCounter
}

// NewRedisRateLimiter creates a rate limiter backed by rdb
func NewRedisRateLimiter(rdb windowCounter) providers.RateLimiter {
	return &RedisRateLimiter{rdb: rdb}
}

// Allow counts one attempt for key. A backend error is returned to the
// caller together with a denying decision.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (providers.RateDecision, error) {
	deny := providers.RateDecision{Allowed: false, Limit: limit, RetryAfter: window}
	k := rateLimitPrefix + key

	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return deny, fmt.Errorf("rate limit incr: %w", err)
	}

	// A key left without a TTL by an earlier failed EXPIRE would never reset,
	// so later hits repair it.
	ttl := window
	if count > 1 {
		if ttl, err = l.rdb.PTTL(ctx, k).Result(); err != nil {
			return deny, fmt.Errorf("rate limit ttl: %w", err)
		}
	}
	if count == 1 || ttl == noExpiry {
		if err := l.rdb.Expire(ctx, k, window).Err(); err != nil {
			return deny, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = window
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	decision := providers.RateDecision{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Remaining: remaining,
	}
	if !decision.Allowed {
		if ttl <= 0 {
			ttl = window
		}
		decision.RetryAfter = ttl
	}
	return decision, nil
}
