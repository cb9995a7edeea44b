package service

import (
	"context"
	"errors"
	"testing"
)

func TestLedger_DebitNeverGoesNegative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 10)

	balance, err := env.ledger.Debit(ctx, 1, 4)
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if balance != 6 {
		t.Fatalf("expected balance 6, got %d", balance)
	}

	// Overdraft is a refused no-op.
	balance, err = env.ledger.Debit(ctx, 1, 7)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if balance != 6 {
		t.Fatalf("refused debit must not change balance, got %d", balance)
	}

	stored, _ := env.ledger.Balance(ctx, 1)
	if stored != 6 {
		t.Fatalf("stored balance changed on refused debit: %d", stored)
	}
}

func TestLedger_CreditRejectsNonPositive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)

	if _, err := env.ledger.Credit(ctx, 1, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := env.ledger.Credit(ctx, 1, -5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestLedger_Transfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 100)

	if err := env.ledger.Transfer(ctx, 1, 1, 10, 1, 1000); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if err := env.ledger.Transfer(ctx, 1, 2, 5000, 1, 1000); !errors.Is(err, ErrTransferBounds) {
		t.Fatalf("expected ErrTransferBounds above max, got %v", err)
	}
	if err := env.ledger.Transfer(ctx, 1, 2, 1, 5, 1000); !errors.Is(err, ErrTransferBounds) {
		t.Fatalf("expected ErrTransferBounds below min, got %v", err)
	}
	if err := env.ledger.Transfer(ctx, 1, 2, 200, 1, 1000); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Destination 2 does not exist yet; transfer creates it lazily.
	if err := env.ledger.Transfer(ctx, 1, 2, 40, 1, 1000); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	from, _ := env.ledger.Balance(ctx, 1)
	to, _ := env.ledger.Balance(ctx, 2)
	if from != 60 || to != 40 {
		t.Fatalf("expected 60/40, got %d/%d", from, to)
	}
}

func TestLedger_GetOrCreateIsLazy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()

	user, err := env.ledger.GetOrCreate(ctx, 77, "alice")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.Diamonds != 0 || user.Username != "alice" {
		t.Fatalf("unexpected new user: %+v", user)
	}

	ids, _ := env.users.ListIDs(ctx)
	if len(ids) != 1 || ids[0] != 77 {
		t.Fatalf("expected user indexed, got %v", ids)
	}

	again, err := env.ledger.GetOrCreate(ctx, 77, "alice2")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if again.Username != "alice2" {
		t.Fatalf("username not refreshed: %q", again.Username)
	}
}
