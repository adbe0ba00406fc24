package ratelimit

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// DefaultMemoryKeys bounds how many distinct keys MemoryStore tracks. The
// least recently seen key is evicted first, which only ever gives that client
// a fresh bucket.
const DefaultMemoryKeys = 10000

// MemoryStore is a per-key token bucket held in process memory.
type MemoryStore struct {
	limit Limit

	mu       sync.Mutex
	limiters *lru.Cache
}

// NewMemoryStore creates a MemoryStore tracking at most size keys.
func NewMemoryStore(limit Limit, size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryKeys
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: creating cache: %w", err)
	}
	return &MemoryStore{limit: limit, limiters: cache}, nil
}

func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	if s.limit.Disabled() {
		return true, nil
	}
	return s.limiter(key).Allow(), nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters.Purge()
	return nil
}

func (s *MemoryStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Limit(s.limit.RPS), s.limit.Burst)
	s.limiters.Add(key, l)
	return l
}
