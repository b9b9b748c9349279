// Package cache stores generated meshes by parameter record key and ensures
// at most one computation per key is in flight.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Store.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte oriented key value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
