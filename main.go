package main

import (
	"database/sql"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/fx"

	"github.com/hachrisjordan/award-itin-engine/internal/api"
	"github.com/hachrisjordan/award-itin-engine/internal/availability"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/credential"
	"github.com/hachrisjordan/award-itin-engine/internal/kvcache"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/metrics"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
	"github.com/hachrisjordan/award-itin-engine/internal/orchestrator"
	"github.com/hachrisjordan/award-itin-engine/internal/ratelimit"
	"github.com/hachrisjordan/award-itin-engine/internal/reliability"
	"github.com/hachrisjordan/award-itin-engine/internal/topology"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.Load,
			logging.New,
			newPostgres,
			newRedisClient,
			newCache,
			newRateLimitGate,
			newReliabilityCache,
			newCredentialStore,
			newMetricsStore,
			newCityGroups,
			newTopologyClient,
			newAvailabilityFetcher,
		),
		fx.StopTimeout(20*time.Second),
		orchestrator.Module(),
		api.Module(),
	)

	app.Run()
}

func newPostgres(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	return db, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
}

func newCache(cfg config.Config, logger logging.Logger) *kvcache.Facade {
	store := kvcache.NewL1Store(kvcache.NewRedisStore(cfg.Redis))
	return kvcache.New(store, cfg.Cache, logger)
}

func newRateLimitGate(client *redis.Client, cfg config.Config, logger logging.Logger) *ratelimit.Gate {
	return ratelimit.New(client, cfg.RateLimit, logger)
}

func newReliabilityCache(db *sql.DB, cfg config.Config) *reliability.Cache {
	return reliability.New(reliability.NewPostgresStore(db), cfg.Reliability)
}

func newCredentialStore(db *sql.DB) *credential.Store {
	return credential.New(db)
}

func newMetricsStore(db *sql.DB) *metrics.Store {
	return metrics.New(db)
}

func newCityGroups(cfg config.Config) (model.CityGroup, error) {
	return model.LoadCityGroups(cfg.CityGroupsPath)
}

func newTopologyClient(cfg config.Config) *topology.Client {
	return topology.New(cfg.Topology)
}

func newAvailabilityFetcher(cfg config.Config, cache *kvcache.Facade) *availability.Fetcher {
	return availability.New(cfg.Availability, cfg.Pool, cfg.Cache.OptimiserTarget, cache)
}
