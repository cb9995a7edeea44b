package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gemvault/internal/bot"
	"gemvault/internal/service"
)

type BackupJob struct {
	backup    *service.BackupService
	settings  *service.SettingsCache
	transport bot.Transport
	logger    *zap.Logger
}

func NewBackupJob(backup *service.BackupService, settings *service.SettingsCache, transport bot.Transport, logger *zap.Logger) *BackupJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BackupJob{
		backup:    backup,
		settings:  settings,
		transport: transport,
		logger:    logger,
	}
}

// ExportSnapshot ships a JSON backup to the admin chat. Skipped when no
// admin chat is configured.
func (j *BackupJob) ExportSnapshot() {
	if j == nil || j.backup == nil || j.settings == nil || j.transport == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	settings, err := j.settings.Get(ctx)
	if err != nil {
		j.logger.Warn("load settings for backup failed", zap.Error(err))
		return
	}
	if settings.AdminChatID == 0 {
		return
	}

	payload, err := j.backup.Export(ctx)
	if err != nil {
		j.logger.Warn("export backup failed", zap.Error(err))
		return
	}

	name := "backup-" + time.Now().UTC().Format("2006-01-02") + ".json"
	if err := j.transport.UploadDocument(ctx, settings.AdminChatID, name, payload); err != nil {
		j.logger.Warn("deliver backup failed",
			zap.Int64("chat_id", settings.AdminChatID),
			zap.Error(err),
		)
	}
}
