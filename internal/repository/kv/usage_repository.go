package kv

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gemvault/internal/kvstore"
	"gemvault/internal/repository"
)

type usageRepository struct {
	store kvstore.Store
}

func NewUsageRepository(store kvstore.Store) repository.UsageRepository {
	return &usageRepository{store: store}
}

var _ repository.UsageRepository = (*usageRepository)(nil)

func dailyUseKey(userID int64, dayKey string) string {
	return "dailyuse:" + strconv.FormatInt(userID, 10) + ":" + dayKey
}

func rateKey(userID int64, action string) string {
	return "ratelimit:" + strconv.FormatInt(userID, 10) + ":" + action
}

func (r *usageRepository) DailyDownloads(ctx context.Context, userID int64, dayKey string) (int, error) {
	var count int
	err := getJSON(ctx, r.store, dailyUseKey(userID, dayKey), &count)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *usageRepository) IncrDailyDownloads(ctx context.Context, userID int64, dayKey string) (int, error) {
	count, err := r.DailyDownloads(ctx, userID, dayKey)
	if err != nil {
		return 0, err
	}
	count++
	if err := putJSON(ctx, r.store, dailyUseKey(userID, dayKey), count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *usageRepository) RateWindow(ctx context.Context, userID int64, action string) ([]time.Time, error) {
	var window []time.Time
	err := getJSON(ctx, r.store, rateKey(userID, action), &window)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return window, nil
}

func (r *usageRepository) SaveRateWindow(ctx context.Context, userID int64, action string, window []time.Time) error {
	return putJSON(ctx, r.store, rateKey(userID, action), window)
}
