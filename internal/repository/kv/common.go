// Package kv implements the repositories over the flat key-value store.
// Index lists (all user ids, per-owner tokens, pending purchases) are
// plain JSON arrays maintained manually next to the records they index:
// the store offers no range scans, so membership mutations are
// read-modify-write like everything else.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"gemvault/internal/kvstore"
	"gemvault/internal/repository"
)

var ErrNotFound = repository.ErrNotFound

func getJSON(ctx context.Context, store kvstore.Store, key string, out any) error {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func putJSON(ctx context.Context, store kvstore.Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, raw)
}

// getList loads a JSON array index; a missing key is an empty list.
func getList[T comparable](ctx context.Context, store kvstore.Store, key string) ([]T, error) {
	var list []T
	err := getJSON(ctx, store, key, &list)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// addToList appends value to the index if absent.
func addToList[T comparable](ctx context.Context, store kvstore.Store, key string, value T) error {
	list, err := getList[T](ctx, store, key)
	if err != nil {
		return err
	}
	for _, item := range list {
		if item == value {
			return nil
		}
	}
	return putJSON(ctx, store, key, append(list, value))
}

// removeFromList drops value from the index if present.
func removeFromList[T comparable](ctx context.Context, store kvstore.Store, key string, value T) error {
	list, err := getList[T](ctx, store, key)
	if err != nil {
		return err
	}
	next := list[:0]
	for _, item := range list {
		if item != value {
			next = append(next, item)
		}
	}
	if len(next) == len(list) {
		return nil
	}
	return putJSON(ctx, store, key, next)
}

// exists reports whether a marker key is present, regardless of its value.
func exists(ctx context.Context, store kvstore.Store, key string) (bool, error) {
	_, err := store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
