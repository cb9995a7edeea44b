package kv

import (
	"context"
	"errors"
	"time"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const (
	lotteryConfigKey  = "lotterycfg"
	lotteryHistoryKey = "lotteryhist"
)

type lotteryRepository struct {
	store kvstore.Store
}

func NewLotteryRepository(store kvstore.Store) repository.LotteryRepository {
	return &lotteryRepository{store: store}
}

var _ repository.LotteryRepository = (*lotteryRepository)(nil)

func poolKey(dayKey string) string {
	return "lotterypool:" + dayKey
}

func drawnKey(dayKey string) string {
	return "lotterydrawn:" + dayKey
}

func (r *lotteryRepository) Config(ctx context.Context) (*model.LotteryConfig, error) {
	var cfg model.LotteryConfig
	err := getJSON(ctx, r.store, lotteryConfigKey, &cfg)
	if errors.Is(err, ErrNotFound) {
		return &model.LotteryConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *lotteryRepository) SaveConfig(ctx context.Context, cfg *model.LotteryConfig) error {
	return putJSON(ctx, r.store, lotteryConfigKey, cfg)
}

func (r *lotteryRepository) Pool(ctx context.Context, dayKey string) (*model.LotteryPool, error) {
	var pool model.LotteryPool
	err := getJSON(ctx, r.store, poolKey(dayKey), &pool)
	if errors.Is(err, ErrNotFound) {
		return &model.LotteryPool{DayKey: dayKey}, nil
	}
	if err != nil {
		return nil, err
	}
	pool.DayKey = dayKey
	return &pool, nil
}

func (r *lotteryRepository) SavePool(ctx context.Context, pool *model.LotteryPool) error {
	return putJSON(ctx, r.store, poolKey(pool.DayKey), pool)
}

func (r *lotteryRepository) Drawn(ctx context.Context, dayKey string) (bool, error) {
	return exists(ctx, r.store, drawnKey(dayKey))
}

func (r *lotteryRepository) MarkDrawn(ctx context.Context, dayKey string, at time.Time) error {
	return putJSON(ctx, r.store, drawnKey(dayKey), map[string]any{"at": at})
}

func (r *lotteryRepository) History(ctx context.Context) ([]model.LotteryDraw, error) {
	var history []model.LotteryDraw
	err := getJSON(ctx, r.store, lotteryHistoryKey, &history)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (r *lotteryRepository) AppendHistory(ctx context.Context, draw model.LotteryDraw) error {
	history, err := r.History(ctx)
	if err != nil {
		return err
	}
	history = append(history, draw)
	if len(history) > model.LotteryHistoryCap {
		history = history[len(history)-model.LotteryHistoryCap:]
	}
	return putJSON(ctx, r.store, lotteryHistoryKey, history)
}
