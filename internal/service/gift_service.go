package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"gemvault/internal/event"
	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// GiftService redeems and administers gift codes. Redemption is guarded
// twice: the global use counter against max_uses, and a per-(code,user)
// marker so a user redeems a given code at most once even on unlimited
// codes.
type GiftService struct {
	gifts  repository.GiftRepository
	ledger *LedgerService
	bus    *event.Bus
	now    period.Clock
	logger *zap.Logger
}

func NewGiftService(gifts repository.GiftRepository, ledger *LedgerService, bus *event.Bus, now period.Clock, logger *zap.Logger) *GiftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &GiftService{gifts: gifts, ledger: ledger, bus: bus, now: now, logger: logger}
}

// Create registers a new code, normalized to upper-case. max_uses 0 means
// unlimited.
func (s *GiftService) Create(ctx context.Context, code string, amount int64, maxUses int, createdBy int64) (*model.GiftCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" || amount <= 0 || maxUses < 0 {
		return nil, ErrGiftCodeBadInput
	}

	if _, err := s.gifts.Get(ctx, normalized); err == nil {
		return nil, ErrGiftCodeExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	gift := &model.GiftCode{
		Code:      normalized,
		Amount:    amount,
		MaxUses:   maxUses,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	if err := s.gifts.Save(ctx, gift); err != nil {
		return nil, err
	}

	s.logger.Info("gift code created",
		zap.String("code", normalized),
		zap.Int64("amount", amount),
		zap.Int("max_uses", maxUses),
	)
	return gift, nil
}

// Redeem credits the code's amount to the user. Checks run in order:
// not found, disabled, capacity, already redeemed by this user.
func (s *GiftService) Redeem(ctx context.Context, userID int64, code string) (int64, error) {
	gift, err := s.gifts.Get(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrGiftCodeNotFound
	}
	if err != nil {
		return 0, err
	}

	if gift.Disabled {
		return 0, ErrGiftCodeDisabled
	}
	if gift.CapacityReached() {
		return 0, ErrGiftCodeCapacity
	}

	redeemed, err := s.gifts.Redeemed(ctx, gift.Code, userID)
	if err != nil {
		return 0, err
	}
	if redeemed {
		return 0, ErrGiftCodeRedeemed
	}

	if _, err := s.ledger.Credit(ctx, userID, gift.Amount); err != nil {
		return 0, err
	}
	if err := s.gifts.MarkRedeemed(ctx, gift.Code, userID, s.now()); err != nil {
		return 0, err
	}

	gift.Used++
	if err := s.gifts.Save(ctx, gift); err != nil {
		return 0, err
	}

	if s.bus != nil {
		s.bus.Publish(event.EventGiftRedeemed, event.GiftRedeemedPayload{
			Code:   gift.Code,
			UserID: userID,
			Amount: gift.Amount,
		})
	}

	s.logger.Info("gift code redeemed",
		zap.String("code", gift.Code),
		zap.Int64("user_id", userID),
		zap.Int64("amount", gift.Amount),
	)
	return gift.Amount, nil
}

// SetDisabled flips the code's enable flag.
func (s *GiftService) SetDisabled(ctx context.Context, code string, disabled bool) error {
	gift, err := s.gifts.Get(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGiftCodeNotFound
	}
	if err != nil {
		return err
	}
	gift.Disabled = disabled
	return s.gifts.Save(ctx, gift)
}

// List returns all codes with their records.
func (s *GiftService) List(ctx context.Context) ([]*model.GiftCode, error) {
	codes, err := s.gifts.ListCodes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.GiftCode, 0, len(codes))
	for _, code := range codes {
		gift, err := s.gifts.Get(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, gift)
	}
	return out, nil
}
