package store

import "context"

// NullBackend is a no-op backend that never stores anything.
// Useful for testing or when persistence should be disabled.
type NullBackend struct{}

// Load always returns a miss.
func (NullBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Save does nothing.
func (NullBackend) Save(ctx context.Context, key string, data []byte) error { return nil }

// Remove does nothing.
func (NullBackend) Remove(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (NullBackend) Close() error { return nil }

// NewNull returns a Store that persists nothing.
func NewNull() Store { return New(NullBackend{}, "") }

var _ Backend = NullBackend{}
