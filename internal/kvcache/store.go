package kvcache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hachrisjordan/award-itin-engine/internal/config"
)

// Store is the minimal KV operation set the cache facade needs. It is
// satisfied by RedisStore in production and can be faked in tests.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements Store over go-redis, grounded on
// koustubhbansal-cred_flights_booking's Redis client construction.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a RedisStore from the engine's Redis configuration.
func NewRedisStore(cfg config.RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
	}
}

// Get returns the raw bytes stored at key, or found=false on a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value at key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
