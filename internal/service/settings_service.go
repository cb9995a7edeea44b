package service

import (
	"context"
	"sync"
	"time"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// settingsCacheTTL bounds how stale the in-process settings memo may get.
// Losing the memo is always safe; it only saves store round-trips within
// a burst of related calls.
const settingsCacheTTL = 10 * time.Second

// SettingsCache is an explicit value+fetch-time cache over the settings
// record, constructed per process with an injectable clock so tests can
// drive expiry.
type SettingsCache struct {
	repo repository.SettingsRepository
	now  period.Clock
	ttl  time.Duration

	mu        sync.Mutex
	cached    *model.Settings
	fetchedAt time.Time
}

func NewSettingsCache(repo repository.SettingsRepository, now period.Clock) *SettingsCache {
	if now == nil {
		now = period.UTCNow
	}
	return &SettingsCache{repo: repo, now: now, ttl: settingsCacheTTL}
}

// Get returns the cached settings, refreshing from the store once the TTL
// has elapsed.
func (c *SettingsCache) Get(ctx context.Context) (*model.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached != nil && now.Sub(c.fetchedAt) < c.ttl {
		out := *c.cached
		return &out, nil
	}

	settings, err := c.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = settings
	c.fetchedAt = now

	out := *settings
	return &out, nil
}

// Update writes settings through to the store and refreshes the memo.
func (c *SettingsCache) Update(ctx context.Context, settings *model.Settings) error {
	if err := c.repo.Save(ctx, settings); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *settings
	c.cached = &stored
	c.fetchedAt = c.now()
	return nil
}

// Invalidate drops the memo; the next Get hits the store.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
