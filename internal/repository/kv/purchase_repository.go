package kv

import (
	"context"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const purchasesPendingKey = "purchases:pending"

type purchaseRepository struct {
	store kvstore.Store
}

func NewPurchaseRepository(store kvstore.Store) repository.PurchaseRepository {
	return &purchaseRepository{store: store}
}

var _ repository.PurchaseRepository = (*purchaseRepository)(nil)

func purchaseKey(id string) string {
	return "purchase:" + id
}

func (r *purchaseRepository) Get(ctx context.Context, id string) (*model.Purchase, error) {
	var purchase model.Purchase
	if err := getJSON(ctx, r.store, purchaseKey(id), &purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) Save(ctx context.Context, purchase *model.Purchase) error {
	return putJSON(ctx, r.store, purchaseKey(purchase.ID), purchase)
}

func (r *purchaseRepository) PendingIDs(ctx context.Context) ([]string, error) {
	return getList[string](ctx, r.store, purchasesPendingKey)
}

func (r *purchaseRepository) SetPending(ctx context.Context, id string, pending bool) error {
	if pending {
		return addToList(ctx, r.store, purchasesPendingKey, id)
	}
	return removeFromList(ctx, r.store, purchasesPendingKey, id)
}
