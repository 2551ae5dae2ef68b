// Package uuidgen computes the short, deterministic flight identity spec.md
// calls a "UUID" (not the RFC 4122 kind): a digest of (flight number,
// departs-at, arrives-at) that ignores every mutable field (seat counts,
// fares) so the same physical flight hashes identically across requests and
// providers.
//
// A bounded LRU (§9) avoids re-hashing the same triple on every request;
// google/uuid is used only to format the digest bytes into the familiar
// dashed textual form, not for RFC4122 generation.
package uuidgen

import (
	"container/list"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultMaxEntries bounds the LRU per §9's "e.g. 50k entries"
	// guidance.
	defaultMaxEntries = 50_000
	// evictFraction is the share of entries dropped once the cache is
	// full, per §9's "evict the oldest 10%".
	evictFraction = 0.10
)

// Cache is a bounded LRU mapping (flight number, departs, arrives) to a
// digest string, safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	index      map[string]*list.Element
}

type entry struct {
	key   string
	value string
}

// New returns an empty cache bounded at maxEntries (defaultMaxEntries if
// maxEntries <= 0).
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		ll:         list.New(),
		index:      make(map[string]*list.Element),
	}
}

// Identity returns the deterministic short digest for the given triple,
// computing and caching it on first use and promoting it to most-recently
// used on every subsequent call.
func (c *Cache) Identity(flightNumber string, departsAt, arrivesAt time.Time) string {
	key := fmt.Sprintf("%s|%d|%d", flightNumber, departsAt.UnixNano(), arrivesAt.UnixNano())

	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.ll.MoveToFront(el)
		v := el.Value.(*entry).value
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	digest := Digest(flightNumber, departsAt, arrivesAt)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry).value
	}

	el := c.ll.PushFront(&entry{key: key, value: digest})
	c.index[key] = el

	if c.ll.Len() > c.maxEntries {
		c.evictOldest()
	}

	return digest
}

func (c *Cache) evictOldest() {
	toEvict := int(float64(c.maxEntries) * evictFraction)
	if toEvict < 1 {
		toEvict = 1
	}
	for i := 0; i < toEvict; i++ {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.ll.Remove(back)
		delete(c.index, back.Value.(*entry).key)
	}
}

// Digest computes the identity digest directly, without caching. Exposed
// for callers, such as tests, that need the pure function.
func Digest(flightNumber string, departsAt, arrivesAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", flightNumber, departsAt.UnixNano(), arrivesAt.UnixNano())))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		// sum[:16] is always exactly 16 bytes; this branch is unreachable.
		return fmt.Sprintf("%x", sum[:16])
	}
	return id.String()
}
