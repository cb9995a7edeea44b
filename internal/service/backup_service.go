package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// BackupService produces a read-only JSON snapshot for disaster recovery.
type BackupService struct {
	users    repository.UserRepository
	files    repository.FileRepository
	missions repository.MissionRepository
	gifts    repository.GiftRepository
	settings repository.SettingsRepository
	now      period.Clock
	logger   *zap.Logger
}

type Snapshot struct {
	TakenAt  string            `json:"taken_at"`
	Users    []*model.User     `json:"users"`
	Files    []*model.FileItem `json:"files"`
	Missions []*model.Mission  `json:"missions"`
	Gifts    []*model.GiftCode `json:"gifts"`
	Settings *model.Settings   `json:"settings"`
}

func NewBackupService(
	users repository.UserRepository,
	files repository.FileRepository,
	missions repository.MissionRepository,
	gifts repository.GiftRepository,
	settings repository.SettingsRepository,
	now period.Clock,
	logger *zap.Logger,
) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &BackupService{
		users:    users,
		files:    files,
		missions: missions,
		gifts:    gifts,
		settings: settings,
		now:      now,
		logger:   logger,
	}
}

// Export marshals the snapshot, skipping index entries whose records
// vanished between the index read and the record read.
func (s *BackupService) Export(ctx context.Context) ([]byte, error) {
	snapshot := Snapshot{TakenAt: s.now().Format("2006-01-02T15:04:05Z")}

	userIDs, err := s.users.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		user, err := s.users.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshot.Users = append(snapshot.Users, user)
	}

	tokens, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		item, err := s.files.Get(ctx, t)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshot.Files = append(snapshot.Files, item)
	}

	missionIDs, err := s.missions.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range missionIDs {
		mission, err := s.missions.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshot.Missions = append(snapshot.Missions, mission)
	}

	codes, err := s.gifts.ListCodes(ctx)
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		gift, err := s.gifts.Get(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshot.Gifts = append(snapshot.Gifts, gift)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Settings = settings

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup exported",
		zap.Int("users", len(snapshot.Users)),
		zap.Int("files", len(snapshot.Files)),
	)
	return raw, nil
}
