package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, interval time.Duration) (*Limiter, *fakeClock) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	return New(NewRedisStore(rdb), WithInterval(interval), WithClock(clock.Now)), clock
}

func TestRedisStoreSlidingWindow(t *testing.T) {
	l, clock := newRedisLimiter(t, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "user-1", 3)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
		clock.Advance(10 * time.Millisecond)
	}

	res, err := l.Check(ctx, "user-1", 3)
	if err != nil {
		t.Fatalf("check 4: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth call within the window should be denied")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Second {
		t.Errorf("retry after: got %v", res.RetryAfter)
	}

	clock.Advance(time.Second)
	res, err = l.Check(ctx, "user-1", 3)
	if err != nil {
		t.Fatalf("check after window: %v", err)
	}
	if !res.Allowed {
		t.Fatal("call after window expiry should be allowed")
	}
}

func TestRedisStoreSameMillisecond(t *testing.T) {
	// Two admissions with identical timestamps must both count.
	l, _ := newRedisLimiter(t, time.Second)
	ctx := context.Background()

	if res, _ := l.Check(ctx, "k", 2); !res.Allowed {
		t.Fatal("first call should be allowed")
	}
	if res, _ := l.Check(ctx, "k", 2); !res.Allowed {
		t.Fatal("second call should be allowed")
	}
	if res, _ := l.Check(ctx, "k", 2); res.Allowed {
		t.Fatal("third call should be denied")
	}
}

func TestRedisStoreKeysAreIndependent(t *testing.T) {
	l, _ := newRedisLimiter(t, time.Second)
	ctx := context.Background()

	l.Check(ctx, "a", 1)
	if res, _ := l.Check(ctx, "a", 1); res.Allowed {
		t.Fatal("second call for key a should be denied")
	}
	if res, _ := l.Check(ctx, "b", 1); !res.Allowed {
		t.Fatal("key b must not be affected by key a's window")
	}
}
