package kv

import (
	"context"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const ticketsIndexKey = "tickets:all"

type ticketRepository struct {
	store kvstore.Store
}

func NewTicketRepository(store kvstore.Store) repository.TicketRepository {
	return &ticketRepository{store: store}
}

var _ repository.TicketRepository = (*ticketRepository)(nil)

func ticketKey(id string) string {
	return "ticket:" + id
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := getJSON(ctx, r.store, ticketKey(id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Save(ctx context.Context, ticket *model.Ticket) error {
	if err := putJSON(ctx, r.store, ticketKey(ticket.ID), ticket); err != nil {
		return err
	}
	return addToList(ctx, r.store, ticketsIndexKey, ticket.ID)
}

func (r *ticketRepository) ListIDs(ctx context.Context) ([]string, error) {
	return getList[string](ctx, r.store, ticketsIndexKey)
}
