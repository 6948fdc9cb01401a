// Package store persists user preferences across restarts.
//
// A [Store] maps string keys to JSON-encoded values. Keys are namespaced with
// a prefix (default "openvis_") so several installations can share one Redis
// or MongoDB instance. Byte storage is delegated to a [Backend]:
//
//   - [FileBackend]: one file per key under a directory (CLI default)
//   - [RedisBackend]: a Redis server via go-redis
//   - [MongoBackend]: a MongoDB collection
//   - [NullBackend]: stores nothing
//
// Callers treat persistence as best effort: a miss on first run is normal and
// a failed Set is logged, never fatal.
package store

import (
	"context"
	"encoding/json"

	"github.com/4ry1337/openvis/pkg/errors"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "openvis_"

// Store persists JSON values by key.
type Store interface {
	// Get decodes the value for key into v. It reports false on a miss.
	Get(ctx context.Context, key string, v any) (bool, error)
	// Set encodes v and stores it under key.
	Set(ctx context.Context, key string, v any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Backend stores raw bytes by key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// JSONStore is the Store used by openvis: JSON values on a Backend, with
// prefixed keys.
type JSONStore struct {
	backend Backend
	prefix  string
}

// New wraps backend. An empty prefix is allowed.
func New(backend Backend, prefix string) *JSONStore {
	return &JSONStore{backend: backend, prefix: prefix}
}

var _ Store = (*JSONStore)(nil)

// Key returns the backend key for key.
func (s *JSONStore) Key(key string) string { return s.prefix + key }

// Get implements Store. A stored value that no longer decodes is reported as
// a miss and removed.
func (s *JSONStore) Get(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.backend.Load(ctx, s.Key(key))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "load %s", key)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = s.backend.Remove(ctx, s.Key(key))
		return false, nil
	}
	return true, nil
}

// Set implements Store.
func (s *JSONStore) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode %s", key)
	}
	if err := s.backend.Save(ctx, s.Key(key), data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save %s", key)
	}
	return nil
}

// Delete implements Store.
func (s *JSONStore) Delete(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, s.Key(key)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete %s", key)
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return s.backend.Close() }
