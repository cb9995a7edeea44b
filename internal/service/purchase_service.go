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

// PurchaseService runs the manual diamond top-up flow:
// awaiting_receipt -> pending_review -> approved | rejected.
// The balance credit happens only on the transition into approved.
type PurchaseService struct {
	purchases repository.PurchaseRepository
	ledger    *LedgerService
	bus       *event.Bus
	now       period.Clock
	logger    *zap.Logger
}

func NewPurchaseService(
	purchases repository.PurchaseRepository,
	ledger *LedgerService,
	bus *event.Bus,
	now period.Clock,
	logger *zap.Logger,
) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &PurchaseService{
		purchases: purchases,
		ledger:    ledger,
		bus:       bus,
		now:       now,
		logger:    logger,
	}
}

// Start opens a purchase for the chosen package.
func (s *PurchaseService) Start(ctx context.Context, userID, diamonds, priceToman int64) (*model.Purchase, error) {
	if diamonds <= 0 || priceToman <= 0 {
		return nil, ErrInvalidAmount
	}

	purchase := &model.Purchase{
		ID:         token.NumericID(8),
		UserID:     userID,
		Diamonds:   diamonds,
		PriceToman: priceToman,
		Status:     model.PurchaseAwaitingReceipt,
		CreatedAt:  s.now(),
	}
	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, err
	}

	s.logger.Info("purchase started",
		zap.String("purchase", purchase.ID),
		zap.Int64("user_id", userID),
		zap.Int64("diamonds", diamonds),
	)
	return purchase, nil
}

// AttachReceipt moves the purchase into review once the user sends the
// payment receipt.
func (s *PurchaseService) AttachReceipt(ctx context.Context, id string, userID int64, receiptFileID string) (*model.Purchase, error) {
	purchase, err := s.purchases.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	if purchase.UserID != userID || purchase.Status != model.PurchaseAwaitingReceipt {
		return nil, ErrPurchaseWrongState
	}

	purchase.ReceiptFileID = receiptFileID
	purchase.Status = model.PurchasePendingReview
	purchase.ReceiptAt = s.now()
	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, err
	}
	if err := s.purchases.SetPending(ctx, purchase.ID, true); err != nil {
		return nil, err
	}
	return purchase, nil
}

// Approve credits the diamonds exactly once. A purchase not in
// pending_review is refused, which makes a second approve a StateError
// no-op rather than a second credit.
func (s *PurchaseService) Approve(ctx context.Context, id string, adminID int64) (*model.Purchase, error) {
	purchase, err := s.purchases.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	if purchase.Status != model.PurchasePendingReview {
		return nil, ErrPurchaseWrongState
	}

	purchase.Status = model.PurchaseApproved
	purchase.ProcessedAt = s.now()
	purchase.ProcessedBy = adminID
	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, err
	}
	if err := s.purchases.SetPending(ctx, purchase.ID, false); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Credit(ctx, purchase.UserID, purchase.Diamonds); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(event.EventPurchaseApproved, event.PurchasePayload{
			PurchaseID: purchase.ID,
			UserID:     purchase.UserID,
			Diamonds:   purchase.Diamonds,
		})
	}

	s.logger.Info("purchase approved",
		zap.String("purchase", purchase.ID),
		zap.Int64("admin", adminID),
	)
	return purchase, nil
}

// Reject closes the purchase without crediting.
func (s *PurchaseService) Reject(ctx context.Context, id string, adminID int64) (*model.Purchase, error) {
	purchase, err := s.purchases.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	if purchase.Status != model.PurchasePendingReview {
		return nil, ErrPurchaseWrongState
	}

	purchase.Status = model.PurchaseRejected
	purchase.ProcessedAt = s.now()
	purchase.ProcessedBy = adminID
	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, err
	}
	if err := s.purchases.SetPending(ctx, purchase.ID, false); err != nil {
		return nil, err
	}
	return purchase, nil
}

// Pending lists purchases awaiting review.
func (s *PurchaseService) Pending(ctx context.Context) ([]*model.Purchase, error) {
	ids, err := s.purchases.PendingIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Purchase, 0, len(ids))
	for _, id := range ids {
		purchase, err := s.purchases.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, purchase)
	}
	return out, nil
}
