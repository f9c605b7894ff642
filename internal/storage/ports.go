// Package storage defines the key/value contract the budget store persists
// through, plus decorators shared by every backend.
package storage

import "context"

// KV is an opaque string store addressed by key.
type KV interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// Closer is implemented by backends holding connections or files.
type Closer interface {
	Close() error
}
