package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gemvault/internal/repository"
)

func TestDelivery_QuoteConfirmEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	item := env.mustFile(ctx, 9, 3, 0, false)

	// New user with balance 0 asks for a 3-diamond file: quoted, then the
	// confirm is denied for insufficient balance.
	result, err := env.delivery.Request(ctx, 1, item.Token, 0, false)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if result.Status != StatusAwaitingPayment || result.Cost != 3 {
		t.Fatalf("expected quote for 3, got %+v", result)
	}

	result, err = env.delivery.Confirm(ctx, 1, item.Token, 0, false)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.Status != StatusDenied || result.Reason != DenyInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %+v", result)
	}
	if result.Needed != 3 {
		t.Fatalf("expected deficit 3, got %d", result.Needed)
	}

	// Admin credits 5; the repeated request then commits: balance 2,
	// downloads 1.
	if _, err := env.ledger.Credit(ctx, 1, 5); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	result, err = env.delivery.Request(ctx, 1, item.Token, 0, false)
	if err != nil || result.Status != StatusAwaitingPayment {
		t.Fatalf("re-quote failed: %+v %v", result, err)
	}
	result, err = env.delivery.Confirm(ctx, 1, item.Token, 0, false)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.Status != StatusDelivered || result.Balance != 2 {
		t.Fatalf("expected delivered with balance 2, got %+v", result)
	}

	stored, _ := env.files.Get(ctx, item.Token)
	if stored.Downloads != 1 {
		t.Fatalf("expected downloads 1, got %d", stored.Downloads)
	}
}

func TestDelivery_QuoteIgnoresBalanceAndCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	env.mustUser(ctx, 2, 100)
	item := env.mustFile(ctx, 9, 3, 0, false)

	// A broke user still gets the quote; the deficit rides along.
	result, err := env.delivery.Request(ctx, 1, item.Token, 0, false)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if result.Status != StatusAwaitingPayment {
		t.Fatalf("expected quote, got status=%q reason=%q", result.Status, result.Reason)
	}
	if result.Needed != 3 || result.Balance != 0 {
		t.Fatalf("expected deficit 3 on balance 0, got %+v", result)
	}

	// Same with a spent daily cap: the quote goes out, the confirm denies.
	settings, _ := env.settings.Get(ctx)
	settings.DailyQuota = 1
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	other := env.mustFile(ctx, 9, 1, 0, false)
	if result, _ := env.delivery.Confirm(ctx, 2, other.Token, 0, false); result.Status != StatusDelivered {
		t.Fatalf("priming delivery failed: %+v", result)
	}

	result, err = env.delivery.Request(ctx, 2, item.Token, 0, false)
	if err != nil || result.Status != StatusAwaitingPayment {
		t.Fatalf("expected quote over spent cap, got %+v %v", result, err)
	}
	result, err = env.delivery.Confirm(ctx, 2, item.Token, 0, false)
	if err != nil || result.Reason != DenyDailyCap {
		t.Fatalf("expected daily_cap on confirm, got %+v %v", result, err)
	}
}

func TestDelivery_FreeItemDeliversImmediately(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	item := env.mustFile(ctx, 9, 0, 0, false)

	result, err := env.delivery.Request(ctx, 1, item.Token, 0, false)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if result.Status != StatusDelivered {
		t.Fatalf("expected immediate delivery, got %+v", result)
	}
}

func TestDelivery_TokenGates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)

	result, err := env.delivery.Request(ctx, 1, "bad token!", 0, false)
	if err != nil || result.Reason != DenyInvalidToken {
		t.Fatalf("expected invalid_token, got %+v %v", result, err)
	}

	result, err = env.delivery.Request(ctx, 1, "AAAABBBBCCCCDDDD", 0, false)
	if err != nil || result.Reason != DenyNotFound {
		t.Fatalf("expected not_found, got %+v %v", result, err)
	}
}

func TestDelivery_QuotaExhaustionAndPurge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	env.mustUser(ctx, 2, 0)
	env.mustUser(ctx, 3, 0)
	item := env.mustFile(ctx, 9, 0, 2, true)

	for _, id := range []int64{1, 2} {
		result, err := env.delivery.Request(ctx, id, item.Token, 0, false)
		if err != nil || result.Status != StatusDelivered {
			t.Fatalf("delivery to %d: %+v %v", id, result, err)
		}
	}

	// The second delivery crossed the limit with delete_on_limit set, so
	// the item is gone; the next requester sees not_found.
	if _, err := env.files.Get(ctx, item.Token); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected item purged, got %v", err)
	}
	result, err := env.delivery.Request(ctx, 3, item.Token, 0, false)
	if err != nil || result.Reason != DenyNotFound {
		t.Fatalf("expected not_found after purge, got %+v %v", result, err)
	}
}

func TestDelivery_QuotaExhaustionWithoutDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	env.mustUser(ctx, 2, 0)
	item := env.mustFile(ctx, 9, 0, 1, false)

	if result, _ := env.delivery.Request(ctx, 1, item.Token, 0, false); result.Status != StatusDelivered {
		t.Fatalf("first delivery denied: %+v", result)
	}
	result, err := env.delivery.Request(ctx, 2, item.Token, 0, false)
	if err != nil || result.Reason != DenyQuotaExhausted {
		t.Fatalf("expected quota_exhausted, got %+v %v", result, err)
	}
}

func TestDelivery_MembershipGateFailsClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	item := env.mustFile(ctx, 9, 0, 0, false)

	settings, _ := env.settings.Get(ctx)
	settings.RequiredChannels = []string{"@channel"}
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	env.members.member = false
	result, err := env.delivery.Request(ctx, 1, item.Token, 0, false)
	if err != nil || result.Reason != DenyJoinRequired {
		t.Fatalf("expected join_required, got %+v %v", result, err)
	}

	// Checker errors also deny.
	env.members.member = true
	env.members.err = errors.New("api down")
	result, _ = env.delivery.Request(ctx, 1, item.Token, 0, false)
	if result.Reason != DenyJoinRequired {
		t.Fatalf("expected fail-closed join_required, got %+v", result)
	}

	// Admins bypass the gate.
	result, _ = env.delivery.Request(ctx, 1, item.Token, 0, true)
	if result.Status != StatusDelivered {
		t.Fatalf("admin should bypass membership, got %+v", result)
	}
}

func TestDelivery_MaintenanceBlocksNonAdmins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	item := env.mustFile(ctx, 9, 0, 0, false)

	settings, _ := env.settings.Get(ctx)
	settings.MaintenanceMode = true
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	result, _ := env.delivery.Request(ctx, 1, item.Token, 0, false)
	if result.Reason != DenyServiceUnavailable {
		t.Fatalf("expected service_unavailable, got %+v", result)
	}
	result, _ = env.delivery.Request(ctx, 1, item.Token, 0, true)
	if result.Status != StatusDelivered {
		t.Fatalf("admin should bypass maintenance, got %+v", result)
	}
}

func TestDelivery_DailyCapOnPricedItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 100)
	first := env.mustFile(ctx, 9, 1, 0, false)
	second := env.mustFile(ctx, 9, 1, 0, false)

	settings, _ := env.settings.Get(ctx)
	settings.DailyQuota = 1
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	result, err := env.delivery.Confirm(ctx, 1, first.Token, 0, false)
	if err != nil || result.Status != StatusDelivered {
		t.Fatalf("first priced delivery: %+v %v", result, err)
	}
	result, err = env.delivery.Confirm(ctx, 1, second.Token, 0, false)
	if err != nil || result.Reason != DenyDailyCap {
		t.Fatalf("expected daily_cap, got %+v %v", result, err)
	}

	// The cap resets with the UTC day.
	env.clock.Advance(24 * time.Hour)
	result, err = env.delivery.Confirm(ctx, 1, second.Token, 0, false)
	if err != nil || result.Status != StatusDelivered {
		t.Fatalf("next-day delivery: %+v %v", result, err)
	}
}

func TestDelivery_DisabledItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0)
	item := env.mustFile(ctx, 9, 0, 0, false)
	if err := env.filesSvc.SetDisabled(ctx, item.Token, true); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	result, _ := env.delivery.Request(ctx, 1, item.Token, 0, false)
	if result.Reason != DenyItemDisabled {
		t.Fatalf("expected item_disabled, got %+v", result)
	}
}

func TestDelivery_ReferralCreditedOnFirstFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.mustUser(ctx, 1, 0) // referrer
	env.mustUser(ctx, 2, 0) // fetching user
	item := env.mustFile(ctx, 9, 0, 0, false)

	for i := 0; i < 3; i++ {
		result, err := env.delivery.Request(ctx, 2, item.Token, 1, false)
		if err != nil || result.Status != StatusDelivered {
			t.Fatalf("delivery %d: %+v %v", i, result, err)
		}
	}

	referrer, _ := env.users.Get(ctx, 1)
	if referrer.Diamonds != 5 {
		t.Fatalf("expected one default bonus of 5, got %d", referrer.Diamonds)
	}
}
