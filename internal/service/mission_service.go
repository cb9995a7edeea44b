package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// checkInCooldown is measured from the last successful claim, not from a
// calendar boundary.
const checkInCooldown = 7 * 24 * time.Hour

// MissionService pays mission rewards at most once per (mission, period)
// pair per user, with the type-specific eligibility checks layered in
// front of the completion primitive.
type MissionService struct {
	missions  repository.MissionRepository
	users     repository.UserRepository
	ledger    *LedgerService
	referrals *ReferralService
	now       period.Clock
	logger    *zap.Logger
}

func NewMissionService(
	missions repository.MissionRepository,
	users repository.UserRepository,
	ledger *LedgerService,
	referrals *ReferralService,
	now period.Clock,
	logger *zap.Logger,
) *MissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &MissionService{
		missions:  missions,
		users:     users,
		ledger:    ledger,
		referrals: referrals,
		now:       now,
		logger:    logger,
	}
}

// PeriodKey derives the completion window key for a mission.
func (s *MissionService) PeriodKey(mission *model.Mission) string {
	switch mission.Period {
	case model.MissionPeriodDaily:
		return period.DayKey(s.now())
	case model.MissionPeriodWeekly:
		return period.WeekKey(s.now())
	default:
		return string(model.MissionPeriodOnce)
	}
}

// Create registers a mission.
func (s *MissionService) Create(ctx context.Context, mission *model.Mission) error {
	if mission.ID == "" {
		mission.ID = uuid.NewString()
	}
	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = s.now()
	}
	if mission.Period == "" {
		mission.Period = model.MissionPeriodOnce
	}
	if mission.Type == "" {
		mission.Type = model.MissionTypeGeneric
	}
	return s.missions.Save(ctx, mission)
}

// Get loads one mission by id.
func (s *MissionService) Get(ctx context.Context, id string) (*model.Mission, error) {
	mission, err := s.missions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMissionNotFound
	}
	return mission, err
}

// Delete removes a mission. Completion marks stay behind; they are keyed
// by mission id and simply stop matching anything.
func (s *MissionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.missions.Delete(ctx, id)
}

// List returns all missions; enabledOnly filters out disabled ones.
func (s *MissionService) List(ctx context.Context, enabledOnly bool) ([]*model.Mission, error) {
	ids, err := s.missions.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Mission, 0, len(ids))
	for _, id := range ids {
		mission, err := s.missions.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if enabledOnly && !mission.Enabled {
			continue
		}
		out = append(out, mission)
	}
	return out, nil
}

// CompleteIfEligible is the completion primitive: it marks the
// (mission, periodKey) pair done and pays the reward exactly once per
// mark. A pair already marked is a no-op returning false.
func (s *MissionService) CompleteIfEligible(ctx context.Context, userID int64, mission *model.Mission) (bool, error) {
	progress, err := s.missions.GetProgress(ctx, userID)
	if err != nil {
		return false, err
	}

	key := model.ProgressKey(mission.ID, s.PeriodKey(mission))
	if _, done := progress.Map[key]; done {
		return false, nil
	}

	now := s.now()
	progress.Map[key] = now.UnixMilli()
	progress.Completed++
	if err := s.missions.SaveProgress(ctx, progress); err != nil {
		return false, err
	}

	if _, err := s.ledger.Credit(ctx, userID, mission.Reward); err != nil {
		return false, err
	}
	if err := s.missions.IncrWeeklyScore(ctx, userID, period.WeekKey(now), mission.Reward); err != nil {
		s.logger.Warn("mission: leaderboard update failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	s.logger.Info("mission completed",
		zap.String("mission", mission.ID),
		zap.Int64("user_id", userID),
		zap.Int64("reward", mission.Reward),
	)
	return true, nil
}

// SubmitAnswer handles quiz/question missions. Any answer consumes the
// single attempt for this period; only a correct one pays the reward.
func (s *MissionService) SubmitAnswer(ctx context.Context, userID int64, missionID, answer string) (bool, error) {
	mission, err := s.missions.Get(ctx, missionID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrMissionNotFound
	}
	if err != nil {
		return false, err
	}
	if !mission.Enabled {
		return false, ErrMissionDisabled
	}
	if mission.Type != model.MissionTypeQuiz && mission.Type != model.MissionTypeQuestion {
		return false, ErrMissionNotDue
	}

	progress, err := s.missions.GetProgress(ctx, userID)
	if err != nil {
		return false, err
	}

	key := model.ProgressKey(mission.ID, s.PeriodKey(mission))
	if _, done := progress.Map[key]; done {
		return false, ErrMissionCompleted
	}
	if _, tried := progress.Attempts[key]; tried {
		return false, ErrMissionAttempted
	}

	correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(mission.Config.Answer))
	if !correct {
		// Record the spent attempt so a wrong answer cannot be retried.
		if progress.Attempts == nil {
			progress.Attempts = map[string]int64{}
		}
		progress.Attempts[key] = s.now().UnixMilli()
		if err := s.missions.SaveProgress(ctx, progress); err != nil {
			return false, err
		}
		return false, nil
	}

	return s.CompleteIfEligible(ctx, userID, mission)
}

// ClaimInviteMissions opportunistically completes any enabled invite
// mission whose weekly-referral threshold the user has met. Returns the
// total reward paid.
func (s *MissionService) ClaimInviteMissions(ctx context.Context, userID int64) (int64, error) {
	missions, err := s.List(ctx, true)
	if err != nil {
		return 0, err
	}

	weekly, err := s.referrals.WeeklyCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	var paid int64
	for _, mission := range missions {
		if mission.Type != model.MissionTypeInvite {
			continue
		}
		if weekly < mission.Config.InvitesNeeded {
			continue
		}
		done, err := s.CompleteIfEligible(ctx, userID, mission)
		if err != nil {
			return paid, err
		}
		if done {
			paid += mission.Reward
		}
	}
	return paid, nil
}

// ClaimCheckIn pays the weekly check-in reward. Claims before
// lastClaim+7d are rejected with the precise remaining duration.
func (s *MissionService) ClaimCheckIn(ctx context.Context, userID int64, reward int64) (time.Duration, error) {
	rec, err := s.users.GetCheckIn(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	if !rec.LastClaim.IsZero() {
		remaining := checkInCooldown - now.Sub(rec.LastClaim)
		if remaining > 0 {
			return remaining, ErrCheckInCooldown
		}
	}

	rec.LastClaim = now
	rec.Claims++
	if err := s.users.SaveCheckIn(ctx, rec); err != nil {
		return 0, err
	}
	if _, err := s.ledger.Credit(ctx, userID, reward); err != nil {
		return 0, err
	}

	s.logger.Info("weekly check-in claimed", zap.Int64("user_id", userID), zap.Int64("reward", reward))
	return 0, nil
}

// Leaderboard returns this week's reward totals.
func (s *MissionService) Leaderboard(ctx context.Context) (map[int64]int64, error) {
	return s.missions.WeeklyScores(ctx, period.WeekKey(s.now()))
}
