package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingUsageRepo struct{}

func (failingUsageRepo) DailyDownloads(context.Context, int64, string) (int, error) {
	return 0, errors.New("store down")
}

func (failingUsageRepo) IncrDailyDownloads(context.Context, int64, string) (int, error) {
	return 0, errors.New("store down")
}

func (failingUsageRepo) RateWindow(context.Context, int64, string) ([]time.Time, error) {
	return nil, errors.New("store down")
}

func (failingUsageRepo) SaveRateWindow(context.Context, int64, string, []time.Time) error {
	return errors.New("store down")
}

func TestRateLimiter_DeniesOverLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	limiter := NewRateLimiter(env.usage, env.clock.Now, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, 1, "fetch") {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	if limiter.Allow(ctx, 1, "fetch") {
		t.Fatal("fourth attempt in window should be denied")
	}

	// Other users and other actions have their own windows.
	if !limiter.Allow(ctx, 2, "fetch") {
		t.Fatal("another user should not share the window")
	}
	if !limiter.Allow(ctx, 1, "redeem") {
		t.Fatal("another action should not share the window")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	limiter := NewRateLimiter(env.usage, env.clock.Now, 2, time.Minute)

	if !limiter.Allow(ctx, 1, "fetch") {
		t.Fatal("first attempt should pass")
	}
	env.clock.Advance(40 * time.Second)
	if !limiter.Allow(ctx, 1, "fetch") {
		t.Fatal("second attempt should pass")
	}
	if limiter.Allow(ctx, 1, "fetch") {
		t.Fatal("third attempt should be denied")
	}

	// 61s after the first attempt it falls out of the window; the
	// younger one still counts.
	env.clock.Advance(21 * time.Second)
	if !limiter.Allow(ctx, 1, "fetch") {
		t.Fatal("expected a slot after the oldest attempt expired")
	}
	if limiter.Allow(ctx, 1, "fetch") {
		t.Fatal("window should be full again")
	}
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	limiter := NewRateLimiter(failingUsageRepo{}, env.clock.Now, 1, time.Minute)

	for i := 0; i < 5; i++ {
		if !limiter.Allow(ctx, 1, "fetch") {
			t.Fatalf("attempt %d: limiter must not block when the store is down", i+1)
		}
	}
}
