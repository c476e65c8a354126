// Package storage provides the session-scoped key-value store used for
// cross-view preview handoff. Values are strings; the store does not interpret them.
package storage

import (
	"context"
	"errors"
)

// Storage errors returned by Store implementations.
var (
	// ErrNotFound indicates the requested key holds no value.
	ErrNotFound = errors.New("storage: key not found")

	// ErrInvalidKey indicates the key is empty or contains path separators or traversal.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Store is a narrowly scoped key-value store whose lifetime is one session.
type Store interface {
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Get returns the value under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key, ending the session.
	Clear(ctx context.Context) error
}
