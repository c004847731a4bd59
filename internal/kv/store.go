package kv

import (
	"context"
	"errors"
)

// Common errors returned by the store
var (
	ErrKeyNotFound = errors.New("key not found")
)

// Store is the persistence port: a string-keyed map of opaque values.
// Writes to different keys are independent; there is no transaction across keys.
type Store interface {
	// Get returns the value stored under key or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases connections held by the store
	Close() error
}
