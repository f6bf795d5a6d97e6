package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	opts.DB = 1
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(context.Background())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestMemoryRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryRateLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
		t.Error("4th request within the window should be rejected")
	}
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other clients have their own budget")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("budget should refill after the window")
	}
}

func TestMemoryRateLimiter_DropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryRateLimiter(1, time.Second)
	l.now = func() time.Time { return now }

	l.Allow(context.Background(), "a")
	now = now.Add(time.Hour)
	l.Allow(context.Background(), "b")

	if _, ok := l.limiters["a"]; ok {
		t.Error("idle bucket should have been collected")
	}
}

func TestRedisRateLimiter(t *testing.T) {
	client := setupTestRedis(t)
	l := NewRedisRateLimiter(client, "chat", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "ip")
	if err != nil || ok {
		t.Errorf("3rd request: ok=%v err=%v, want rejected", ok, err)
	}

	// Rejected requests are not stored.
	if n := client.ZCard(ctx, l.key("ip")).Val(); n != 2 {
		t.Errorf("window size = %d, want 2", n)
	}

	other := NewRedisRateLimiter(client, "signin", 2, time.Minute)
	if ok, _ := other.Allow(ctx, "ip"); !ok {
		t.Error("scopes must not share budgets")
	}
}
