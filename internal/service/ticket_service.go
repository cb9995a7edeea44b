package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
)

// TicketService manages support tickets with an append-only message log
// capped to the last 200 entries.
type TicketService struct {
	tickets repository.TicketRepository
	now     period.Clock
	logger  *zap.Logger
}

func NewTicketService(tickets repository.TicketRepository, now period.Clock, logger *zap.Logger) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &TicketService{tickets: tickets, now: now, logger: logger}
}

func (s *TicketService) Create(ctx context.Context, userID int64, category, subject, desc string) (*model.Ticket, error) {
	now := s.now()
	ticket := &model.Ticket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		Subject:   subject,
		Desc:      desc,
		Status:    model.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ticket.Append(model.TicketMessage{From: "user", By: userID, At: now, Text: desc})

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("ticket created", zap.String("ticket", ticket.ID), zap.Int64("user_id", userID))
	return ticket, nil
}

// AddMessage appends to the log. from is "user" or "admin"; users can only
// write to their own open tickets.
func (s *TicketService) AddMessage(ctx context.Context, id string, by int64, from, text string) (*model.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketClosed {
		return nil, ErrTicketClosed
	}
	if from == "user" && ticket.UserID != by {
		return nil, ErrTicketNotFound
	}

	ticket.Append(model.TicketMessage{From: from, By: by, At: s.now(), Text: text})
	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) Close(ctx context.Context, id string) error {
	ticket, err := s.tickets.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTicketNotFound
	}
	if err != nil {
		return err
	}
	ticket.Status = model.TicketClosed
	ticket.UpdatedAt = s.now()
	return s.tickets.Save(ctx, ticket)
}

func (s *TicketService) Get(ctx context.Context, id string) (*model.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

func (s *TicketService) List(ctx context.Context) ([]*model.Ticket, error) {
	ids, err := s.tickets.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Ticket, 0, len(ids))
	for _, id := range ids {
		ticket, err := s.tickets.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ticket)
	}
	return out, nil
}
