package service

import (
	"context"
	"time"

	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// RateLimiter is the coarse, store-backed per-action limiter: a fixed
// count per sliding window, best-effort only. It narrows the chance of
// rapid repeated taps landing concurrently; it is not a safety guarantee.
type RateLimiter struct {
	usage  repository.UsageRepository
	now    period.Clock
	limit  int
	window time.Duration
}

func NewRateLimiter(usage repository.UsageRepository, now period.Clock, limit int, window time.Duration) *RateLimiter {
	if now == nil {
		now = period.UTCNow
	}
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{usage: usage, now: now, limit: limit, window: window}
}

// Allow records one attempt and reports whether it is within the limit.
// Store failures allow the action: the limiter is best-effort.
func (l *RateLimiter) Allow(ctx context.Context, userID int64, action string) bool {
	window, err := l.usage.RateWindow(ctx, userID, action)
	if err != nil {
		return true
	}

	now := l.now()
	cutoff := now.Add(-l.window)
	next := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			next = append(next, ts)
		}
	}

	if len(next) >= l.limit {
		_ = l.usage.SaveRateWindow(ctx, userID, action, next)
		return false
	}

	next = append(next, now)
	_ = l.usage.SaveRateWindow(ctx, userID, action, next)
	return true
}
