package kvcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// l1TTL bounds how long a raw/filtered-cache entry is absorbed in-process
// before the next read falls through to Redis again. Short on purpose: this
// tier only exists to collapse duplicate reads that land within the same
// few seconds (e.g. a client's paginated follow-up requests), not to serve
// as a second source of truth.
const l1TTL = 5 * time.Second

// L1Store wraps a Store with an in-process layer, grounded on the
// teacher's cache.Cache GetOrLoad decorator: a short-lived local hit avoids
// a Redis round trip without the underlying store ever knowing an L1 tier
// exists.
type L1Store struct {
	next  Store
	local *gocache.Cache
}

// NewL1Store wraps next with an in-process absorption layer.
func NewL1Store(next Store) *L1Store {
	return &L1Store{
		next:  next,
		local: gocache.New(l1TTL, 2*l1TTL),
	}
}

// Get checks the local tier first, falling through to next on a miss and
// populating the local tier with whatever next returns (hit or miss alike,
// so a miss is also absorbed for l1TTL).
func (s *L1Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := s.local.Get(key); ok {
		entry := v.(l1Entry)
		return entry.value, entry.found, nil
	}

	value, found, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	s.local.Set(key, l1Entry{value: value, found: found}, gocache.DefaultExpiration)
	return value, found, nil
}

// Set writes through to next and invalidates the local entry so a
// subsequent Get observes the fresh value immediately.
func (s *L1Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.local.Delete(key)
	return s.next.Set(ctx, key, value, ttl)
}

type l1Entry struct {
	value []byte
	found bool
}
