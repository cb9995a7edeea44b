package kv

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const giftsIndexKey = "gifts:all"

type giftRepository struct {
	store kvstore.Store
}

func NewGiftRepository(store kvstore.Store) repository.GiftRepository {
	return &giftRepository{store: store}
}

var _ repository.GiftRepository = (*giftRepository)(nil)

// Codes are normalized to upper-case at the key level so lookups are
// case-insensitive regardless of what the caller passes.
func giftKey(code string) string {
	return "gift:" + strings.ToUpper(strings.TrimSpace(code))
}

func giftUsedKey(code string, userID int64) string {
	return "giftused:" + strings.ToUpper(strings.TrimSpace(code)) + ":" + strconv.FormatInt(userID, 10)
}

func (r *giftRepository) Get(ctx context.Context, code string) (*model.GiftCode, error) {
	var gift model.GiftCode
	if err := getJSON(ctx, r.store, giftKey(code), &gift); err != nil {
		return nil, err
	}
	return &gift, nil
}

func (r *giftRepository) Save(ctx context.Context, gift *model.GiftCode) error {
	gift.Code = strings.ToUpper(strings.TrimSpace(gift.Code))
	if err := putJSON(ctx, r.store, giftKey(gift.Code), gift); err != nil {
		return err
	}
	return addToList(ctx, r.store, giftsIndexKey, gift.Code)
}

func (r *giftRepository) Delete(ctx context.Context, code string) error {
	if err := r.store.Delete(ctx, giftKey(code)); err != nil {
		return err
	}
	return removeFromList(ctx, r.store, giftsIndexKey, strings.ToUpper(strings.TrimSpace(code)))
}

func (r *giftRepository) ListCodes(ctx context.Context) ([]string, error) {
	return getList[string](ctx, r.store, giftsIndexKey)
}

func (r *giftRepository) Redeemed(ctx context.Context, code string, userID int64) (bool, error) {
	return exists(ctx, r.store, giftUsedKey(code, userID))
}

func (r *giftRepository) MarkRedeemed(ctx context.Context, code string, userID int64, at time.Time) error {
	return putJSON(ctx, r.store, giftUsedKey(code, userID), map[string]any{"at": at})
}
