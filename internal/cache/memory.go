package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds a MemoryStore created with a non-positive capacity.
const DefaultCapacity = 10000

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// MemoryStore is a thread-safe LRU store with per-entry TTL.
//
// Lookups and writes are O(1): a map finds the node, and a doubly linked
// list between two sentinels keeps recency order (head.next is the most
// recently used, tail.prev the least). Expired entries are dropped lazily
// on access. When an insert exceeds the capacity the least recently used
// entry is evicted.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*lruEntry
	head     *lruEntry
	tail     *lruEntry
	now      func() time.Time
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &MemoryStore{
		capacity: capacity,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
		now:      time.Now,
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil, ErrMiss
	}
	s.moveToFront(e)
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key, value, ttl)
	return nil
}

func (s *MemoryStore) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.live(key); ok {
		return false, e.expiresAt.Sub(s.now()), nil
	}
	s.put(key, value, ttl)
	return true, 0, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		s.remove(e)
	}
	return nil
}

// The helpers below must be called with mu held.

// live returns the entry for key unless it is missing or expired. Expired
// entries are removed.
func (s *MemoryStore) live(key string) (*lruEntry, bool) {
	e, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		s.remove(e)
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	expiresAt := s.now().Add(ttl)
	if e, ok := s.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		s.moveToFront(e)
		return
	}

	e := &lruEntry{key: key, value: value, expiresAt: expiresAt}
	s.addToFront(e)
	s.items[key] = e

	for len(s.items) > s.capacity {
		oldest := s.tail.prev
		if oldest == s.head {
			break
		}
		s.remove(oldest)
	}
}

func (s *MemoryStore) addToFront(e *lruEntry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *MemoryStore) moveToFront(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	s.addToFront(e)
}

func (s *MemoryStore) remove(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(s.items, e.key)
}
