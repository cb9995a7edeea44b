package service

import (
	"context"
	"errors"
	"testing"

	"gemvault/internal/model"
)

func TestPurchase_LinearFlowCreditsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)

	purchase, err := env.purchase.Start(ctx, 1, 50, 100_000)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(purchase.ID) != 8 {
		t.Fatalf("expected 8-digit id, got %q", purchase.ID)
	}
	if purchase.Status != model.PurchaseAwaitingReceipt {
		t.Fatalf("unexpected status %s", purchase.Status)
	}

	// Approving before the receipt is a state error.
	if _, err := env.purchase.Approve(ctx, purchase.ID, 9); !errors.Is(err, ErrPurchaseWrongState) {
		t.Fatalf("expected wrong-state, got %v", err)
	}

	if _, err := env.purchase.AttachReceipt(ctx, purchase.ID, 1, "receipt-file"); err != nil {
		t.Fatalf("receipt failed: %v", err)
	}

	pending, _ := env.purchase.Pending(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected one pending purchase, got %d", len(pending))
	}

	if _, err := env.purchase.Approve(ctx, purchase.ID, 9); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if balance, _ := env.ledger.Balance(ctx, 1); balance != 50 {
		t.Fatalf("expected 50, got %d", balance)
	}

	// Second approve must not credit again.
	if _, err := env.purchase.Approve(ctx, purchase.ID, 9); !errors.Is(err, ErrPurchaseWrongState) {
		t.Fatalf("expected wrong-state on re-approve, got %v", err)
	}
	if balance, _ := env.ledger.Balance(ctx, 1); balance != 50 {
		t.Fatalf("double credit: %d", balance)
	}

	pending, _ = env.purchase.Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("pending index not cleared: %d", len(pending))
	}
}

func TestPurchase_RejectDoesNotCredit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)

	purchase, _ := env.purchase.Start(ctx, 1, 50, 100_000)
	if _, err := env.purchase.AttachReceipt(ctx, purchase.ID, 1, "receipt"); err != nil {
		t.Fatalf("receipt failed: %v", err)
	}
	if _, err := env.purchase.Reject(ctx, purchase.ID, 9); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if balance, _ := env.ledger.Balance(ctx, 1); balance != 0 {
		t.Fatalf("rejected purchase credited: %d", balance)
	}
	if _, err := env.purchase.Approve(ctx, purchase.ID, 9); !errors.Is(err, ErrPurchaseWrongState) {
		t.Fatalf("expected wrong-state after reject, got %v", err)
	}
}

func TestPurchase_ReceiptRequiresOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)

	purchase, _ := env.purchase.Start(ctx, 1, 50, 100_000)
	if _, err := env.purchase.AttachReceipt(ctx, purchase.ID, 2, "receipt"); !errors.Is(err, ErrPurchaseWrongState) {
		t.Fatalf("expected wrong-state for foreign receipt, got %v", err)
	}
}
