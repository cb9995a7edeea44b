package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// ReferralService handles referral attribution and the one-time referrer
// bonus. Attribution is first-write-wins on the referred user's record;
// the bonus is guarded by the ref_credited flag on the referred user, so
// it pays at most once per referred user over that user's lifetime,
// regardless of which referral-eligible event fires first or how often.
type ReferralService struct {
	users  repository.UserRepository
	ledger *LedgerService
	now    period.Clock
	logger *zap.Logger
}

func NewReferralService(users repository.UserRepository, ledger *LedgerService, now period.Clock, logger *zap.Logger) *ReferralService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &ReferralService{users: users, ledger: ledger, now: now, logger: logger}
}

// Attribute records referrerID as the referrer of userID if no referrer
// is set yet, then pays the configured bonus if it has not been paid.
// Self-referrals and unknown referrers are silently ignored; referral
// handling must never fail the flow that carried the payload.
func (s *ReferralService) Attribute(ctx context.Context, userID, referrerID, bonus int64) {
	if referrerID == 0 || referrerID == userID {
		return
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("referral: load referred user failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	if user.ReferredBy == 0 {
		user.ReferredBy = referrerID
		if err := s.users.Save(ctx, user); err != nil {
			s.logger.Warn("referral: save attribution failed", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
	}

	if user.ReferredBy != referrerID || user.RefCredited {
		return
	}

	referrer, err := s.users.Get(ctx, user.ReferredBy)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("referral: load referrer failed", zap.Int64("referrer", user.ReferredBy), zap.Error(err))
		return
	}

	// Mark the referred user first: if the credit below is lost to a
	// partial failure, the flag errs on never double-paying.
	user.RefCredited = true
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Warn("referral: save credit flag failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	referrer.Referrals++
	referrer.Diamonds += bonus
	if err := s.users.Save(ctx, referrer); err != nil {
		s.logger.Warn("referral: pay bonus failed", zap.Int64("referrer", referrer.ID), zap.Error(err))
		return
	}

	weekKey := period.WeekKey(s.now())
	if _, err := s.users.IncrWeeklyReferrals(ctx, referrer.ID, weekKey); err != nil {
		s.logger.Warn("referral: weekly counter failed", zap.Int64("referrer", referrer.ID), zap.Error(err))
	}

	s.logger.Info("referral bonus paid",
		zap.Int64("referrer", referrer.ID),
		zap.Int64("referred", userID),
		zap.Int64("bonus", bonus),
	)
}

// WeeklyCount reports the referrer's verified referrals this ISO week,
// used by the invite mission eligibility check.
func (s *ReferralService) WeeklyCount(ctx context.Context, referrerID int64) (int, error) {
	return s.users.WeeklyReferrals(ctx, referrerID, period.WeekKey(s.now()))
}
