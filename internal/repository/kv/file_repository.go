package kv

import (
	"context"
	"errors"
	"strconv"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const filesIndexKey = "files:all"

type fileRepository struct {
	store kvstore.Store
}

func NewFileRepository(store kvstore.Store) repository.FileRepository {
	return &fileRepository{store: store}
}

var _ repository.FileRepository = (*fileRepository)(nil)

func fileKey(token string) string {
	return "file:" + token
}

func ownerIndexKey(owner int64) string {
	return "files:owner:" + strconv.FormatInt(owner, 10)
}

func (r *fileRepository) Get(ctx context.Context, token string) (*model.FileItem, error) {
	var item model.FileItem
	if err := getJSON(ctx, r.store, fileKey(token), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *fileRepository) Save(ctx context.Context, item *model.FileItem) error {
	if err := putJSON(ctx, r.store, fileKey(item.Token), item); err != nil {
		return err
	}
	if err := addToList(ctx, r.store, ownerIndexKey(item.Owner), item.Token); err != nil {
		return err
	}
	return addToList(ctx, r.store, filesIndexKey, item.Token)
}

func (r *fileRepository) Delete(ctx context.Context, token string) error {
	item, err := r.Get(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := r.store.Delete(ctx, fileKey(token)); err != nil {
		return err
	}
	if item != nil {
		if err := removeFromList(ctx, r.store, ownerIndexKey(item.Owner), token); err != nil {
			return err
		}
	}
	return removeFromList(ctx, r.store, filesIndexKey, token)
}

func (r *fileRepository) ListByOwner(ctx context.Context, owner int64) ([]string, error) {
	return getList[string](ctx, r.store, ownerIndexKey(owner))
}

func (r *fileRepository) ListAll(ctx context.Context) ([]string, error) {
	return getList[string](ctx, r.store, filesIndexKey)
}
