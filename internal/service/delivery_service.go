package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gemvault/internal/event"
	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
	"gemvault/pkg/token"
)

// DenialReason names the gate that rejected a delivery request.
type DenialReason string

const (
	DenyInvalidToken        DenialReason = "invalid_token"
	DenyNotFound            DenialReason = "not_found"
	DenyServiceUnavailable  DenialReason = "service_unavailable"
	DenyItemDisabled        DenialReason = "item_disabled"
	DenyQuotaExhausted      DenialReason = "quota_exhausted"
	DenyJoinRequired        DenialReason = "join_required"
	DenyDailyCap            DenialReason = "daily_cap"
	DenyInsufficientBalance DenialReason = "insufficient_balance"
)

type DeliveryStatus string

const (
	StatusDelivered       DeliveryStatus = "delivered"
	StatusAwaitingPayment DeliveryStatus = "awaiting_payment"
	StatusDenied          DeliveryStatus = "denied"
)

// DeliveryResult is the terminal outcome of a delivery request.
type DeliveryResult struct {
	Status  DeliveryStatus
	Reason  DenialReason
	Item    *model.FileItem
	Cost    int64
	Balance int64 // balance after a committed debit, or current on denial
	Needed  int64 // deficit on insufficient balance
}

// MembershipChecker verifies channel membership. Treated fail-closed: any
// error counts as not a member.
type MembershipChecker interface {
	IsMember(ctx context.Context, channelID string, userID int64) (bool, error)
}

// DeliveryService is the gate pipeline in front of content hand-off.
// Priced items go through quote-then-confirm: Request returns
// AwaitingPayment without debiting, Confirm re-runs every gate before
// committing. The re-validation narrows the read-modify-write race
// window; it does not eliminate it (no locks exist in the store).
type DeliveryService struct {
	files     repository.FileRepository
	users     repository.UserRepository
	usage     repository.UsageRepository
	ledger    *LedgerService
	referrals *ReferralService
	settings  *SettingsCache
	members   MembershipChecker
	bus       *event.Bus
	now       period.Clock
	logger    *zap.Logger
}

func NewDeliveryService(
	files repository.FileRepository,
	users repository.UserRepository,
	usage repository.UsageRepository,
	ledger *LedgerService,
	referrals *ReferralService,
	settings *SettingsCache,
	members MembershipChecker,
	bus *event.Bus,
	now period.Clock,
	logger *zap.Logger,
) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &DeliveryService{
		files:     files,
		users:     users,
		usage:     usage,
		ledger:    ledger,
		referrals: referrals,
		settings:  settings,
		members:   members,
		bus:       bus,
		now:       now,
		logger:    logger,
	}
}

// Request runs the gates for a fetch. Free items are committed and
// delivered immediately; priced items return an AwaitingPayment quote.
func (s *DeliveryService) Request(ctx context.Context, userID int64, fileToken string, referrer int64, isAdmin bool) (*DeliveryResult, error) {
	item, settings, result, err := s.runGates(ctx, userID, fileToken, isAdmin)
	if result != nil || err != nil {
		return result, err
	}

	if item.CostPoints > 0 {
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		quote := &DeliveryResult{
			Status:  StatusAwaitingPayment,
			Item:    item,
			Cost:    item.CostPoints,
			Balance: balance,
		}
		if balance < item.CostPoints {
			quote.Needed = item.CostPoints - balance
		}
		return quote, nil
	}

	return s.commit(ctx, userID, item, settings, referrer, isAdmin)
}

// Confirm commits a previously quoted priced fetch. The access gates
// re-run, then the payment gates are checked for the first time: the
// quote itself never denies for balance or daily cap.
func (s *DeliveryService) Confirm(ctx context.Context, userID int64, fileToken string, referrer int64, isAdmin bool) (*DeliveryResult, error) {
	item, settings, result, err := s.runGates(ctx, userID, fileToken, isAdmin)
	if result != nil || err != nil {
		return result, err
	}
	result, err = s.paymentGates(ctx, userID, item, settings, isAdmin)
	if result != nil || err != nil {
		return result, err
	}
	return s.commit(ctx, userID, item, settings, referrer, isAdmin)
}

// runGates evaluates the access gates short-circuit: token, existence,
// service state, item state, quota, membership. A non-nil result is a
// denial; nil result with nil error means all gates passed. Balance and
// daily cap are not checked here, they belong to Confirm.
func (s *DeliveryService) runGates(ctx context.Context, userID int64, fileToken string, isAdmin bool) (*model.FileItem, *model.Settings, *DeliveryResult, error) {
	if !token.Valid(fileToken) {
		return nil, nil, s.deny(fileToken, userID, DenyInvalidToken), nil
	}

	item, err := s.files.Get(ctx, fileToken)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, s.deny(fileToken, userID, DenyNotFound), nil
	}
	if err != nil {
		return nil, nil, nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if (!settings.ServiceEnabled || settings.MaintenanceMode) && !isAdmin {
		return nil, nil, s.deny(fileToken, userID, DenyServiceUnavailable), nil
	}

	if item.Disabled {
		return nil, nil, s.deny(fileToken, userID, DenyItemDisabled), nil
	}

	if item.QuotaExhausted() {
		if item.DeleteOnLimit {
			if err := s.files.Delete(ctx, item.Token); err != nil {
				s.logger.Warn("delivery: purge on quota failed", zap.String("token", item.Token), zap.Error(err))
			}
		}
		return nil, nil, s.deny(fileToken, userID, DenyQuotaExhausted), nil
	}

	if len(settings.RequiredChannels) > 0 && !isAdmin {
		for _, channel := range settings.RequiredChannels {
			member, err := s.members.IsMember(ctx, channel, userID)
			if err != nil || !member {
				// Fail closed on checker errors.
				return nil, nil, s.deny(fileToken, userID, DenyJoinRequired), nil
			}
		}
	}

	return item, settings, nil, nil
}

// paymentGates checks daily cap and balance for a priced item. Only
// Confirm runs these: a request for a priced file is always answered
// with a quote, the user learns about a deficit when committing.
func (s *DeliveryService) paymentGates(ctx context.Context, userID int64, item *model.FileItem, settings *model.Settings, isAdmin bool) (*DeliveryResult, error) {
	if item.CostPoints == 0 {
		return nil, nil
	}

	if settings.DailyQuota > 0 && !isAdmin {
		used, err := s.usage.DailyDownloads(ctx, userID, period.DayKey(s.now()))
		if err != nil {
			return nil, err
		}
		if used >= settings.DailyQuota {
			return s.deny(item.Token, userID, DenyDailyCap), nil
		}
	}

	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < item.CostPoints {
		result := s.deny(item.Token, userID, DenyInsufficientBalance)
		result.Cost = item.CostPoints
		result.Balance = balance
		result.Needed = item.CostPoints - balance
		return result, nil
	}
	return nil, nil
}

// commit is gate 8: debit, bump counters, purge on crossing the limit,
// pay the referral credit, and report delivered. The caller hands the
// payload to the transport; a failed send does not roll any of this back.
func (s *DeliveryService) commit(ctx context.Context, userID int64, item *model.FileItem, settings *model.Settings, referrer int64, isAdmin bool) (*DeliveryResult, error) {
	var balance int64
	if item.CostPoints > 0 {
		var err error
		balance, err = s.ledger.Debit(ctx, userID, item.CostPoints)
		if errors.Is(err, ErrInsufficientBalance) {
			result := s.deny(item.Token, userID, DenyInsufficientBalance)
			result.Cost = item.CostPoints
			result.Balance = balance
			result.Needed = item.CostPoints - balance
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	item.Downloads++
	item.LastDownload = now
	if item.QuotaExhausted() && item.DeleteOnLimit {
		if err := s.files.Delete(ctx, item.Token); err != nil {
			s.logger.Warn("delivery: purge on exhaustion failed", zap.String("token", item.Token), zap.Error(err))
		}
	} else {
		if err := s.files.Save(ctx, item); err != nil {
			return nil, err
		}
	}

	if item.CostPoints > 0 && settings.DailyQuota > 0 && !isAdmin {
		if _, err := s.usage.IncrDailyDownloads(ctx, userID, period.DayKey(now)); err != nil {
			s.logger.Warn("delivery: daily counter failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	if referrer != 0 {
		s.referrals.Attribute(ctx, userID, referrer, settings.ReferralBonus)
	}

	if s.bus != nil {
		s.bus.Publish(event.EventFileDelivered, event.DeliveryPayload{
			Token:  item.Token,
			UserID: userID,
			Cost:   item.CostPoints,
		})
	}

	s.logger.Info("file delivered",
		zap.String("token", item.Token),
		zap.Int64("user_id", userID),
		zap.Int64("cost", item.CostPoints),
	)
	return &DeliveryResult{
		Status:  StatusDelivered,
		Item:    item,
		Cost:    item.CostPoints,
		Balance: balance,
	}, nil
}

func (s *DeliveryService) deny(fileToken string, userID int64, reason DenialReason) *DeliveryResult {
	if s.bus != nil {
		s.bus.Publish(event.EventDeliveryDenied, event.DeliveryPayload{
			Token:  fileToken,
			UserID: userID,
			Reason: string(reason),
		})
	}
	return &DeliveryResult{Status: StatusDenied, Reason: reason}
}
