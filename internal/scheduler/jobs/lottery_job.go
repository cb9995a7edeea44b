package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gemvault/internal/bot"
	"gemvault/internal/service"
)

type LotteryJob struct {
	lottery   *service.LotteryService
	transport bot.Transport
	logger    *zap.Logger
}

func NewLotteryJob(lottery *service.LotteryService, transport bot.Transport, logger *zap.Logger) *LotteryJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LotteryJob{
		lottery:   lottery,
		transport: transport,
		logger:    logger,
	}
}

// RunDailyDraw draws today's pool and tells each winner. A draw that
// already happened (manual draw from the console) is not an error.
func (j *LotteryJob) RunDailyDraw() {
	if j == nil || j.lottery == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	winners, err := j.lottery.DrawToday(ctx)
	if err != nil {
		if errors.Is(err, service.ErrLotteryDrawnAlready) || errors.Is(err, service.ErrLotteryDisabled) {
			return
		}
		j.logger.Warn("daily lottery draw failed", zap.Error(err))
		return
	}

	if j.transport == nil {
		return
	}

	cfg, err := j.lottery.Config(ctx)
	if err != nil {
		j.logger.Warn("load lottery config for announcement failed", zap.Error(err))
		return
	}

	text := fmt.Sprintf("🎉 You won today's lottery! %d 💎 have been added to your balance.", cfg.RewardDiamonds)
	for _, userID := range winners {
		if sendErr := j.transport.SendText(ctx, userID, text); sendErr != nil {
			j.logger.Warn("announce lottery win failed",
				zap.Int64("user_id", userID),
				zap.Error(sendErr),
			)
		}
	}
}
