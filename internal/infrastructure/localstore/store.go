// Package localstore provides the device-local key/value store that keeps
// pending verifications across restarts. Values are opaque bytes.
package localstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by a store after Close
var ErrClosed = errors.New("local store closed")

// Store is a small durable key/value store
type Store interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key; removing a missing key is not an error
	Remove(ctx context.Context, key string) error
	// Close releases the store's resources
	Close() error
}
