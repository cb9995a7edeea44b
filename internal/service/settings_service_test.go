package service

import (
	"context"
	"testing"
	"time"

	"gemvault/internal/model"
)

func TestSettingsCache_ServesMemoWithinTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()

	first, err := env.cache.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !first.ServiceEnabled {
		t.Fatal("expected defaults with service enabled")
	}

	// Write behind the cache's back; within the TTL the memo still wins.
	stale := *first
	stale.ServiceEnabled = false
	if err := env.settings.Save(ctx, &stale); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	env.clock.Advance(9 * time.Second)
	memoized, err := env.cache.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !memoized.ServiceEnabled {
		t.Fatal("memo expired too early")
	}

	env.clock.Advance(2 * time.Second)
	fresh, err := env.cache.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fresh.ServiceEnabled {
		t.Fatal("memo not refreshed after TTL")
	}
}

func TestSettingsCache_UpdateWritesThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()

	settings := model.DefaultSettings()
	settings.DailyQuota = 9
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := env.cache.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.DailyQuota != 9 {
		t.Fatalf("expected quota 9 from memo, got %d", got.DailyQuota)
	}

	stored, err := env.settings.Get(ctx)
	if err != nil {
		t.Fatalf("store get failed: %v", err)
	}
	if stored.DailyQuota != 9 {
		t.Fatalf("expected quota 9 in store, got %d", stored.DailyQuota)
	}
}

func TestSettingsCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()

	first, _ := env.cache.Get(ctx)
	first.DailyQuota = 999

	second, _ := env.cache.Get(ctx)
	if second.DailyQuota == 999 {
		t.Fatal("cache handed out its internal value")
	}
}
