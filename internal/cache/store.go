// Package cache provides the stats cache and the stores behind it.
//
// A Store is a byte-level key/value store with per-entry TTL. Two
// implementations exist: MemoryStore, a bounded LRU kept in process, and
// BadgerStore, which survives restarts and can be shared by processes that
// open the same badger directory. StatsCache and Cooldown are written
// against the interface only, so the backend is a configuration choice.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a TTL key/value store. Writes are last-write-wins except for
// SetIfAbsent, which is atomic per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent stores value only when key is absent or expired. When the
	// key is held it returns false and the time left on the existing entry.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error)
	Delete(ctx context.Context, key string) error
}
