// Package kvstore is the storage boundary of the system: JSON values
// addressed by flat string keys, with no transactions, no atomic
// increments and no range scans. Every multi-key mutation in the layers
// above is a plain read-modify-write; index lists are maintained manually
// alongside the records they index.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the key-value contract every repository is built on.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
