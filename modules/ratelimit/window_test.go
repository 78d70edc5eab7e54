package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

// setupTestLimiter returns a limiter on a live Redis with a per-test key
// prefix, or skips when Redis is unavailable.
func setupTestLimiter(t *testing.T, quotas map[Class]Quota) (*SlidingWindowLimiter, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	prefix := "test:ratelimit:" + t.Name() + ":"
	cleanup := func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})

	return NewSlidingWindowLimiter(client, quotas, prefix), client
}

func TestSlidingWindowLimiter_SeparateQuotas(t *testing.T) {
	limiter, _ := setupTestLimiter(t, map[Class]Quota{
		ClassRead:  {Requests: 3, Window: time.Minute},
		ClassWrite: {Requests: 1, Window: time.Minute},
	})
	ctx := context.Background()

	write, err := limiter.Allow(ctx, ClassWrite, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !write.Allowed || write.Remaining != 0 || write.Limit != 1 {
		t.Fatalf("first write: got %+v", write)
	}

	denied, err := limiter.Allow(ctx, ClassWrite, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if denied.Allowed {
		t.Fatal("second write should be denied")
	}
	if denied.RetryAfter <= 0 || denied.RetryAfter > time.Minute {
		t.Errorf("unexpected retry after %v", denied.RetryAfter)
	}

	for i := 0; i < 3; i++ {
		read, err := limiter.Allow(ctx, ClassRead, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !read.Allowed {
			t.Fatalf("read %d should be allowed while writes are exhausted", i+1)
		}
		if read.Remaining != 2-i {
			t.Errorf("read %d: expected remaining %d, got %d", i+1, 2-i, read.Remaining)
		}
	}

	other, err := limiter.Allow(ctx, ClassWrite, "10.0.0.2")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !other.Allowed {
		t.Error("a different client should have its own window")
	}
}

func TestSlidingWindowLimiter_RejectedRequestsAreNotCounted(t *testing.T) {
	limiter, _ := setupTestLimiter(t, map[Class]Quota{
		ClassRead: {Requests: 1, Window: time.Second},
	})
	ctx := context.Background()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	if r, err := limiter.Allow(ctx, ClassRead, "k"); err != nil || !r.Allowed {
		t.Fatalf("first request should be allowed: %v %v", r, err)
	}
	for i := 0; i < 5; i++ {
		if r, err := limiter.Allow(ctx, ClassRead, "k"); err != nil || r.Allowed {
			t.Fatalf("request over quota should be denied: %v %v", r, err)
		}
	}

	now = now.Add(1100 * time.Millisecond)
	r, err := limiter.Allow(ctx, ClassRead, "k")
	if err != nil || !r.Allowed {
		t.Fatalf("request after the window should be allowed: %v %v", r, err)
	}
	if r.Used != 1 {
		t.Errorf("expected only the new request in the window, used=%d", r.Used)
	}
}

func TestSlidingWindowLimiter_UsageAndReset(t *testing.T) {
	limiter, _ := setupTestLimiter(t, map[Class]Quota{
		ClassRead:  {Requests: 2, Window: time.Minute},
		ClassWrite: {Requests: 2, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(ctx, ClassWrite, "c"); err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		usage, err := limiter.Usage(ctx, ClassWrite, "c")
		if err != nil {
			t.Fatalf("Usage() error = %v", err)
		}
		if usage.Used != 2 || usage.Remaining != 0 || usage.Allowed {
			t.Fatalf("Usage() = %+v, want exhausted", usage)
		}
	}

	read, err := limiter.Usage(ctx, ClassRead, "c")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if read.Used != 0 || !read.Allowed {
		t.Errorf("read usage should be untouched, got %+v", read)
	}

	if err := limiter.Reset(ctx, "c"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	usage, err := limiter.Usage(ctx, ClassWrite, "c")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if usage.Used != 0 || usage.Remaining != 2 {
		t.Errorf("expected a clean window after reset, got %+v", usage)
	}
}

func TestSlidingWindowLimiter_UnknownClass(t *testing.T) {
	limiter := NewSlidingWindowLimiter(nil, map[Class]Quota{
		ClassRead: {Requests: 1, Window: time.Second},
	}, "test:")

	if _, err := limiter.Allow(context.Background(), ClassWrite, "k"); err == nil {
		t.Error("expected error for a class without a quota")
	}
	if _, err := limiter.Usage(context.Background(), ClassWrite, "k"); err == nil {
		t.Error("expected error for a class without a quota")
	}
}

func TestNewResult(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	q := Quota{Requests: 5, Window: time.Minute}

	t.Run("admitted", func(t *testing.T) {
		r := newResult(ClassRead, q, now, true, 2, now.Add(-10*time.Second))
		if r.Remaining != 3 || r.RetryAfter != 0 {
			t.Errorf("got %+v", r)
		}
		if want := now.Add(50 * time.Second); !r.ResetAt.Equal(want) {
			t.Errorf("ResetAt = %v, want %v", r.ResetAt, want)
		}
	})

	t.Run("denied", func(t *testing.T) {
		r := newResult(ClassWrite, q, now, false, 5, now.Add(-45*time.Second))
		if r.Remaining != 0 || r.RetryAfter != 15*time.Second {
			t.Errorf("got %+v", r)
		}
	})

	t.Run("over quota after shrink", func(t *testing.T) {
		r := newResult(ClassWrite, q, now, false, 7, now.Add(-2*time.Minute))
		if r.Remaining != 0 || r.RetryAfter != 0 {
			t.Errorf("got %+v", r)
		}
	})
}
