package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultBadgerPrefix namespaces cache keys inside a shared badger DB.
const DefaultBadgerPrefix = "cache:"

// BadgerStore keeps entries in badger and relies on badger's native TTL
// for expiry.
type BadgerStore struct {
	db     *badger.DB
	prefix []byte
}

// NewBadgerStore wraps an open badger DB. The DB is owned by the caller.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	if prefix == "" {
		prefix = DefaultBadgerPrefix
	}
	return &BadgerStore{db: db, prefix: []byte(prefix)}
}

// OpenBadger opens (or creates) a badger directory at path with badger's
// own logging disabled.
func OpenBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("cache: opening badger at %s: %w", path, err)
	}
	return db, nil
}

func (s *BadgerStore) key(k string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: badger get %s: %w", key, err)
	}
	return value, nil
}

func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(s.key(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("cache: badger set %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent runs the check and the write in one badger transaction.
// Concurrent callers conflict at commit and the loser sees
// badger.ErrConflict, which is reported as "held" with the full TTL.
func (s *BadgerStore) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error) {
	k := s.key(key)
	var remaining time.Duration
	acquired := false

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == nil {
			remaining = time.Until(time.Unix(int64(item.ExpiresAt()), 0))
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		acquired = true
		return txn.SetEntry(badger.NewEntry(k, value).WithTTL(ttl))
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, ttl, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("cache: badger set-if-absent %s: %w", key, err)
	}
	if !acquired && remaining < 0 {
		remaining = 0
	}
	return acquired, remaining, nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	if err != nil {
		return fmt.Errorf("cache: badger delete %s: %w", key, err)
	}
	return nil
}
