package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
)

func TestUserRepository_RoundTripAndIndices(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewUserRepository(kvstore.NewMemory())

	if _, err := repo.Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	user := &model.User{ID: 42, Diamonds: 7, CreatedAt: time.Now().UTC()}
	if err := repo.Save(ctx, user); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.AddToIndex(ctx, 42); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if err := repo.AddToIndex(ctx, 42); err != nil {
		t.Fatalf("re-index failed: %v", err)
	}

	got, err := repo.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Diamonds != 7 {
		t.Fatalf("expected 7 diamonds, got %d", got.Diamonds)
	}

	ids, err := repo.ListIDs(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 42 {
		t.Fatalf("index must dedupe, got %v", ids)
	}
}

func TestUserRepository_AdminAndBlockMarkers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewUserRepository(kvstore.NewMemory())

	if err := repo.SetAdmin(ctx, 1, true); err != nil {
		t.Fatalf("set admin failed: %v", err)
	}
	admins, err := repo.AdminIDs(ctx)
	if err != nil || len(admins) != 1 || admins[0] != 1 {
		t.Fatalf("expected [1], got %v (%v)", admins, err)
	}
	if err := repo.SetAdmin(ctx, 1, false); err != nil {
		t.Fatalf("unset admin failed: %v", err)
	}
	admins, _ = repo.AdminIDs(ctx)
	if len(admins) != 0 {
		t.Fatalf("expected empty admin list, got %v", admins)
	}

	blocked, err := repo.IsBlocked(ctx, 9)
	if err != nil || blocked {
		t.Fatalf("expected unblocked, got %v (%v)", blocked, err)
	}
	if err := repo.SetBlocked(ctx, 9, true); err != nil {
		t.Fatalf("block failed: %v", err)
	}
	blocked, _ = repo.IsBlocked(ctx, 9)
	if !blocked {
		t.Fatal("expected blocked")
	}
	if err := repo.SetBlocked(ctx, 9, false); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}
	blocked, _ = repo.IsBlocked(ctx, 9)
	if blocked {
		t.Fatal("expected unblocked after unset")
	}
}

func TestFileRepository_OwnerIndexFollowsDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewFileRepository(kvstore.NewMemory())

	item := &model.FileItem{Token: "abcdefghij123456", Owner: 5, Name: "notes.pdf"}
	if err := repo.Save(ctx, item); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	tokens, err := repo.ListByOwner(ctx, 5)
	if err != nil || len(tokens) != 1 {
		t.Fatalf("expected one token, got %v (%v)", tokens, err)
	}

	if err := repo.Delete(ctx, item.Token); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, item.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	tokens, _ = repo.ListByOwner(ctx, 5)
	if len(tokens) != 0 {
		t.Fatalf("owner index not cleaned: %v", tokens)
	}
	all, _ := repo.ListAll(ctx)
	if len(all) != 0 {
		t.Fatalf("global index not cleaned: %v", all)
	}
}

func TestGiftRepository_CaseInsensitiveAndMarkers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGiftRepository(kvstore.NewMemory())

	gift := &model.GiftCode{Code: "welcome10", Amount: 10, MaxUses: 2}
	if err := repo.Save(ctx, gift); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if gift.Code != "WELCOME10" {
		t.Fatalf("code not normalized: %q", gift.Code)
	}

	got, err := repo.Get(ctx, "Welcome10")
	if err != nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if got.Amount != 10 {
		t.Fatalf("unexpected amount %d", got.Amount)
	}

	redeemed, err := repo.Redeemed(ctx, "WELCOME10", 7)
	if err != nil || redeemed {
		t.Fatalf("expected not redeemed, got %v (%v)", redeemed, err)
	}
	if err := repo.MarkRedeemed(ctx, "welcome10", 7, time.Now().UTC()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	redeemed, _ = repo.Redeemed(ctx, "WeLcOmE10", 7)
	if !redeemed {
		t.Fatal("expected redeemed marker to match case-insensitively")
	}
}

func TestLotteryRepository_HistoryCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLotteryRepository(kvstore.NewMemory())

	for i := 0; i < model.LotteryHistoryCap+10; i++ {
		err := repo.AppendHistory(ctx, model.LotteryDraw{DayKey: "d", PoolSize: i})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	history, err := repo.History(ctx)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != model.LotteryHistoryCap {
		t.Fatalf("expected cap %d, got %d", model.LotteryHistoryCap, len(history))
	}
	if history[len(history)-1].PoolSize != model.LotteryHistoryCap+9 {
		t.Fatalf("expected newest entry kept, got %d", history[len(history)-1].PoolSize)
	}
}
