package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	specLotteryDraw  = "0 0 6 * * *"
	specBackupExport = "0 0 */6 * * *"
)

type LotteryTask interface {
	RunDailyDraw()
}

type BackupTask interface {
	ExportSnapshot()
}

type Deps struct {
	LotteryJob LotteryTask
	BackupJob  BackupTask
}

func NewScheduler(deps Deps, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.LotteryJob != nil {
		addFunc(c, specLotteryDraw, "lottery.daily_draw", logger, deps.LotteryJob.RunDailyDraw)
	}
	if deps.BackupJob != nil {
		addFunc(c, specBackupExport, "backup.export_snapshot", logger, deps.BackupJob.ExportSnapshot)
	}

	return c
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if logger == nil {
		return
	}

	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
