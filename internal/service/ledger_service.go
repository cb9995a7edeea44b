package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// LedgerService owns the balance primitives. Every mutation is a plain
// read-modify-write against the store: there is no transaction and no
// atomic increment, so two concurrent writers can lose an update. The
// window is kept narrow (load, mutate, save in immediate sequence) and
// priced flows re-validate right before committing; see the delivery gate.
type LedgerService struct {
	users  repository.UserRepository
	now    period.Clock
	logger *zap.Logger
}

func NewLedgerService(users repository.UserRepository, now period.Clock, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &LedgerService{users: users, now: now, logger: logger}
}

// GetOrCreate loads the user, creating the ledger record lazily on first
// contact and registering it in the global index.
func (s *LedgerService) GetOrCreate(ctx context.Context, id int64, username string) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		now := s.now()
		user = &model.User{ID: id, Username: username, CreatedAt: now, LastSeen: now}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, err
		}
		if err := s.users.AddToIndex(ctx, id); err != nil {
			return nil, err
		}
		s.logger.Info("user created", zap.Int64("user_id", id))
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	if username != "" && username != user.Username {
		user.Username = username
	}
	user.LastSeen = s.now()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Credit adds amount diamonds and returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	user.Diamonds += amount
	if err := s.users.Save(ctx, user); err != nil {
		return 0, err
	}

	s.logger.Info("balance credited",
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
		zap.Int64("balance", user.Diamonds),
	)
	return user.Diamonds, nil
}

// Debit removes amount diamonds. It refuses, without writing, any debit
// that would drive the balance negative.
func (s *LedgerService) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	if user.Diamonds < amount {
		return user.Diamonds, ErrInsufficientBalance
	}

	user.Diamonds -= amount
	if err := s.users.Save(ctx, user); err != nil {
		return 0, err
	}

	s.logger.Info("balance debited",
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
		zap.Int64("balance", user.Diamonds),
	)
	return user.Diamonds, nil
}

// Transfer moves diamonds between users within the configured bounds.
// A destination the system has never seen gets a lazy ledger record.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID, amount, min, max int64) error {
	if fromID == toID {
		return ErrSelfTransfer
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount < min || (max > 0 && amount > max) {
		return ErrTransferBounds
	}

	from, err := s.users.Get(ctx, fromID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if from.Diamonds < amount {
		return ErrInsufficientBalance
	}

	to, err := s.GetOrCreate(ctx, toID, "")
	if err != nil {
		return err
	}

	from.Diamonds -= amount
	if err := s.users.Save(ctx, from); err != nil {
		return err
	}
	to.Diamonds += amount
	if err := s.users.Save(ctx, to); err != nil {
		return err
	}

	s.logger.Info("balance transferred",
		zap.Int64("from", fromID),
		zap.Int64("to", toID),
		zap.Int64("amount", amount),
	)
	return nil
}

// Balance returns the current balance without touching last-seen.
func (s *LedgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return user.Diamonds, nil
}
