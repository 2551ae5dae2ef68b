// Package kvcache implements the two-tier cache facade of spec §4.2: a
// "raw" cache keyed by (origin, destination, core-params) holding the full
// pipeline output, and a "filtered" cache keyed by raw-key plus
// filter-params holding the exact paginated response returned to callers.
// Both are stored compressed in a KV store (Redis in production) under a
// fixed 30-minute TTL. Reads and writes are best-effort: a KV error never
// fails the request, it only means the engine proceeds as if the entry
// were absent (and, for writes, logs and moves on).
package kvcache

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
)

// Facade is the cache entry point used by the orchestrator and the
// availability fetcher.
type Facade struct {
	store  Store
	cache  config.CacheConfig
	logger logging.Logger
}

// New builds a Facade over the given Store.
func New(store Store, cache config.CacheConfig, logger logging.Logger) *Facade {
	return &Facade{store: store, cache: cache, logger: logger.With("component", "kvcache")}
}

// RawKey builds the raw-cache key: build-itins:<origin>:<destination>:<sha256(core params)>.
func RawKey(origin, destination string, coreParams any) string {
	return fmt.Sprintf("build-itins:%s:%s:%s", origin, destination, hashOf(coreParams))
}

// FilteredKey builds the filtered-cache key: <raw-key>:<sha256(filter params)>.
func FilteredKey(rawKey string, filterParams any) string {
	return fmt.Sprintf("%s:%s", rawKey, hashOf(filterParams))
}

// SubqueryKey builds the availability-subquery cache key.
func SubqueryKey(params any) string {
	return fmt.Sprintf("availability:%s", hashOf(params))
}

func hashOf(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// params are always JSON-marshalable DTOs; this is unreachable in
		// practice but we still need a stable fallback for safety.
		b = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetRaw fetches and decompresses a raw-cache entry into dst. It returns
// false on any miss or error (logged, never surfaced).
func (f *Facade) GetRaw(ctx context.Context, key string, dst any) bool {
	return f.get(ctx, key, dst)
}

// SetRaw compresses and stores v under the raw-cache TTL.
func (f *Facade) SetRaw(ctx context.Context, key string, v any) {
	f.set(ctx, key, v, f.cache.RawTTL)
}

// GetFiltered fetches and decompresses a filtered-cache entry into dst.
func (f *Facade) GetFiltered(ctx context.Context, key string, dst any) bool {
	return f.get(ctx, key, dst)
}

// SetFiltered compresses and stores v under the filtered-cache TTL.
func (f *Facade) SetFiltered(ctx context.Context, key string, v any) {
	f.set(ctx, key, v, f.cache.FilteredTTL)
}

// GetSubquery fetches a cached availability subquery result.
func (f *Facade) GetSubquery(ctx context.Context, key string, dst any) bool {
	return f.get(ctx, key, dst)
}

// SetSubquery stores an availability subquery result.
func (f *Facade) SetSubquery(ctx context.Context, key string, v any) {
	f.set(ctx, key, v, f.cache.SubqueryTTL)
}

func (f *Facade) get(ctx context.Context, key string, dst any) bool {
	raw, found, err := f.store.Get(ctx, key)
	if err != nil {
		f.logger.Warn("cache read failed, proceeding as uncached", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}

	decompressed, err := inflate(raw)
	if err != nil {
		f.logger.Warn("cache entry corrupt, proceeding as uncached", "key", key, "error", err)
		return false
	}

	if err := json.Unmarshal(decompressed, dst); err != nil {
		f.logger.Warn("cache entry unmarshal failed, proceeding as uncached", "key", key, "error", err)
		return false
	}

	return true
}

func (f *Facade) set(ctx context.Context, key string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		f.logger.Warn("cache value marshal failed, skipping write", "key", key, "error", err)
		return
	}

	compressed, err := deflate(payload)
	if err != nil {
		f.logger.Warn("cache value compress failed, skipping write", "key", key, "error", err)
		return
	}

	if err := f.store.Set(ctx, key, compressed, ttl); err != nil {
		f.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}
