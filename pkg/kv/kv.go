// Package kv provides the small key-value store the pendant uses for
// on-device persistence (the alarm book). Keys are flat strings.
//
// A BadgerDB-backed implementation covers the device; an in-memory
// implementation covers tests.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Store is the interface for the pendant's persistence layer.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value. The write
	// is durable before Set returns.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
