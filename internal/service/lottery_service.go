package service

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"gemvault/internal/event"
	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// LotteryService manages the daily enrollment pool and the draw. Draws
// are guarded by a per-day marker, so a manual admin run after the
// scheduled one is a reported no-op rather than a double payout.
type LotteryService struct {
	lottery repository.LotteryRepository
	ledger  *LedgerService
	bus     *event.Bus
	now     period.Clock
	randFn  func(n int) int
	logger  *zap.Logger
}

func NewLotteryService(lottery repository.LotteryRepository, ledger *LedgerService, bus *event.Bus, now period.Clock, logger *zap.Logger) *LotteryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &LotteryService{
		lottery: lottery,
		ledger:  ledger,
		bus:     bus,
		now:     now,
		randFn:  rand.Intn,
		logger:  logger,
	}
}

// Enroll adds the user to today's pool. A second enrollment the same day
// is a no-op reported as already-enrolled (false), not an error.
func (s *LotteryService) Enroll(ctx context.Context, userID int64) (bool, error) {
	cfg, err := s.lottery.Config(ctx)
	if err != nil {
		return false, err
	}
	if !cfg.Enabled {
		return false, ErrLotteryDisabled
	}

	dayKey := period.DayKey(s.now())
	pool, err := s.lottery.Pool(ctx, dayKey)
	if err != nil {
		return false, err
	}
	if pool.Contains(userID) {
		return false, nil
	}

	pool.Entries = append(pool.Entries, userID)
	if err := s.lottery.SavePool(ctx, pool); err != nil {
		return false, err
	}
	return true, nil
}

// Draw selects winners for the given day without replacement, credits each
// the configured reward and appends a history entry. It refuses a day
// already drawn.
func (s *LotteryService) Draw(ctx context.Context, dayKey string) ([]int64, error) {
	cfg, err := s.lottery.Config(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled || cfg.Winners <= 0 || cfg.RewardDiamonds <= 0 {
		return nil, ErrLotteryDisabled
	}

	drawn, err := s.lottery.Drawn(ctx, dayKey)
	if err != nil {
		return nil, err
	}
	if drawn {
		return nil, ErrLotteryDrawnAlready
	}

	pool, err := s.lottery.Pool(ctx, dayKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.lottery.MarkDrawn(ctx, dayKey, now); err != nil {
		return nil, err
	}

	// Fisher-Yates prefix on a copy of the pool.
	entries := append([]int64(nil), pool.Entries...)
	count := cfg.Winners
	if count > len(entries) {
		count = len(entries)
	}
	for i := 0; i < count; i++ {
		j := i + s.randFn(len(entries)-i)
		entries[i], entries[j] = entries[j], entries[i]
	}
	winners := entries[:count]

	for _, winner := range winners {
		if _, err := s.ledger.Credit(ctx, winner, cfg.RewardDiamonds); err != nil {
			s.logger.Error("lottery: credit winner failed",
				zap.Int64("user_id", winner),
				zap.Error(err),
			)
		}
	}

	if err := s.lottery.AppendHistory(ctx, model.LotteryDraw{
		DayKey:   dayKey,
		Winners:  append([]int64(nil), winners...),
		Reward:   cfg.RewardDiamonds,
		PoolSize: len(pool.Entries),
		DrawnAt:  now,
	}); err != nil {
		s.logger.Error("lottery: append history failed", zap.Error(err))
	}

	if s.bus != nil {
		s.bus.Publish(event.EventLotteryDrawn, event.LotteryDrawnPayload{
			DayKey:   dayKey,
			Winners:  append([]int64(nil), winners...),
			Reward:   cfg.RewardDiamonds,
			DrawnAt:  now,
			PoolSize: len(pool.Entries),
		})
	}

	s.logger.Info("lottery drawn",
		zap.String("day", dayKey),
		zap.Int("pool", len(pool.Entries)),
		zap.Int("winners", len(winners)),
	)
	return winners, nil
}

// DrawToday runs the draw for the current UTC day.
func (s *LotteryService) DrawToday(ctx context.Context) ([]int64, error) {
	return s.Draw(ctx, period.DayKey(s.now()))
}

// Config returns the lottery configuration.
func (s *LotteryService) Config(ctx context.Context) (*model.LotteryConfig, error) {
	return s.lottery.Config(ctx)
}

// UpdateConfig writes the lottery configuration.
func (s *LotteryService) UpdateConfig(ctx context.Context, cfg *model.LotteryConfig) error {
	return s.lottery.SaveConfig(ctx, cfg)
}

// History returns past draws, newest last.
func (s *LotteryService) History(ctx context.Context) ([]model.LotteryDraw, error) {
	return s.lottery.History(ctx)
}
