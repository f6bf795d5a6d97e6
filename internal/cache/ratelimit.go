package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitPrefix is the key prefix of the per-client request windows.
const RateLimitPrefix = "ratelimit:"

// RateLimiter decides whether one more request fits a client's budget.
type RateLimiter interface {
	// Allow records a request for key and reports whether it is within the
	// limit. Errors mean the limiter could not decide; callers fail open.
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisRateLimiter keeps a sliding window per key in a Redis sorted set, so
// every server instance shares the same budget.
type RedisRateLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
}

// NewRedisRateLimiter allows limit requests per window for each key. scope
// separates budgets of different endpoints.
func NewRedisRateLimiter(client *redis.Client, scope string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, scope: scope, limit: limit, window: window}
}

func (l *RedisRateLimiter) key(key string) string {
	return RateLimitPrefix + l.scope + ":" + key
}

// Allow uses one pipeline: ZREMRANGEBYSCORE (drop old entries) + ZADD (this
// request) + ZCARD (count) + PEXPIRE (let idle windows vanish).
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)
	now := time.Now()
	member := uuid.NewString()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(now.Add(-l.window).UnixMicro(), 10))
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	card := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit window: %w", err)
	}

	if card.Val() > int64(l.limit) {
		// Rejected requests do not use up the budget.
		if err := l.client.ZRem(ctx, k, member).Err(); err != nil {
			slog.Warn("rate limit cleanup failed", "key", k, "error", err)
		}
		return false, nil
	}
	return true, nil
}

// MemoryRateLimiter is the single-instance fallback used without Redis. It
// keeps a token bucket per key that refills limit tokens per window.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*memoryEntry
	every    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	lastGC   time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limiters: make(map[string]*memoryEntry),
		every:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
		idle:     window * 2,
		now:      time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.gc(now)

	e, ok := l.limiters[key]
	if !ok {
		e = &memoryEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// gc drops buckets idle long enough to be full again.
func (l *MemoryRateLimiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.idle {
		return
	}
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}
	l.lastGC = now
}
