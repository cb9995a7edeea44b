package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository/kv"
)

func newTicketService() (*TicketService, *fakeClock) {
	clock := newFakeClock(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	return NewTicketService(kv.NewTicketRepository(kvstore.NewMemory()), clock.Now, zap.NewNop()), clock
}

func TestTicket_CreateAndReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTicketService()

	ticket, err := svc.Create(ctx, 7, "billing", "missing diamonds", "I paid but got nothing")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ticket.Status != model.TicketOpen {
		t.Fatalf("new ticket should be open, got %q", ticket.Status)
	}
	if len(ticket.Messages) != 1 || ticket.Messages[0].From != "user" {
		t.Fatalf("description should seed the log, got %+v", ticket.Messages)
	}

	updated, err := svc.AddMessage(ctx, ticket.ID, 1, "admin", "checking now")
	if err != nil {
		t.Fatalf("admin reply failed: %v", err)
	}
	if len(updated.Messages) != 2 || updated.Messages[1].From != "admin" {
		t.Fatalf("expected admin message appended, got %+v", updated.Messages)
	}
}

func TestTicket_UserCannotWriteToForeignTicket(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTicketService()

	ticket, err := svc.Create(ctx, 7, "other", "subject", "desc")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.AddMessage(ctx, ticket.ID, 8, "user", "mine now"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound for foreign user write, got %v", err)
	}
}

func TestTicket_ClosedRefusesMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTicketService()

	ticket, err := svc.Create(ctx, 7, "other", "subject", "desc")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Close(ctx, ticket.ID); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := svc.AddMessage(ctx, ticket.ID, 7, "user", "hello?"); !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}
}

func TestTicket_LogCapKeepsNewest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTicketService()

	ticket, err := svc.Create(ctx, 7, "other", "subject", "first")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for i := 0; i < model.TicketLogCap+10; i++ {
		if _, err := svc.AddMessage(ctx, ticket.ID, 7, "user", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	got, err := svc.Get(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Messages) != model.TicketLogCap {
		t.Fatalf("expected log capped at %d, got %d", model.TicketLogCap, len(got.Messages))
	}
	last := got.Messages[len(got.Messages)-1]
	if last.Text != fmt.Sprintf("msg %d", model.TicketLogCap+9) {
		t.Fatalf("cap must drop oldest entries, last is %q", last.Text)
	}
}

func TestTicket_UnknownID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTicketService()

	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
	if err := svc.Close(ctx, "nope"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound on close, got %v", err)
	}
}
