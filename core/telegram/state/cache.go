package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/maypok86/otter"
)

// CacheOptions bounds the cache-backed store.
type CacheOptions struct {
	Capacity int
	// TTL evicts sessions that were not written for this long.
	TTL time.Duration
}

type cacheStore struct {
	// mu serializes read-modify-write in Upsert; otter itself is lock-free for Get.
	mu    sync.Mutex
	cache otter.Cache[int64, Session]
}

// NewCacheStore returns a Store backed by an otter cache with capacity and idle TTL eviction.
func NewCacheStore(opts CacheOptions) (Store, error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("state: cache capacity must be > 0, got %d", opts.Capacity)
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("state: cache ttl must be > 0, got %s", opts.TTL)
	}
	c, err := otter.MustBuilder[int64, Session](opts.Capacity).
		WithTTL(opts.TTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("state: build session cache: %w", err)
	}
	return &cacheStore{cache: c}, nil
}

func (s *cacheStore) Get(chatID int64) Session {
	if sess, ok := s.cache.Get(chatID); ok {
		return sess.clone()
	}
	return Session{State: StateIdle}
}

func (s *cacheStore) Upsert(chatID int64, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.cache.Get(chatID)
	if !ok {
		sess = Session{State: StateIdle}
	}
	sess = sess.clone()
	fn(&sess)
	s.cache.Set(chatID, sess)
	return sess.clone()
}

func (s *cacheStore) Len() int {
	return s.cache.Size()
}

func (s *cacheStore) Close() {
	s.cache.Close()
}
