// Package config loads process configuration from a YAML file and
// environment variables via viper, the way the teacher repo's
// configuration layer does, extended with the sections this engine needs:
// Postgres/Redis DSNs, the upstream route-topology/availability
// collaborators, the concurrency pool width, cache TTLs and the rate-limit
// window sizes.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration object, unmarshalled once at process
// start and passed by value into every fx provider that needs it.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Topology     CollaboratorConfig `mapstructure:"topology"`
	Availability CollaboratorConfig `mapstructure:"availability"`
	Pool         PoolConfig         `mapstructure:"pool"`
	Cache        CacheConfig        `mapstructure:"cache"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Reliability  ReliabilityConfig  `mapstructure:"reliability"`
	Log          LogConfig          `mapstructure:"log"`

	// CityGroupsPath points at the JSON file mapping city code -> member
	// airport codes (§3, §9: "process-wide initialized once"). Empty means
	// no city expansion is configured; waypoints are then always treated
	// as airport codes.
	CityGroupsPath string `mapstructure:"city_groups_path"`
}

// ServerConfig configures the HTTP ingress.
type ServerConfig struct {
	Port                    string        `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// PostgresConfig configures the relational store backing credential
// rotation, reliability rules and route metrics (§6).
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the KV store backing the cache facade and the
// rate-limit gate (§4.2, §4.3).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CollaboratorConfig configures one outbound HTTP collaborator (the
// route-topology or availability service, §6).
type CollaboratorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// PoolConfig configures the bounded concurrency pool (§4.1, §5).
type PoolConfig struct {
	AvailabilityConcurrency int `mapstructure:"availability_concurrency"`
	ParallelRouteThreshold  int `mapstructure:"parallel_route_threshold"`
}

// CacheConfig configures the raw/filtered/subquery cache TTLs (§4.2).
type CacheConfig struct {
	RawTTL          time.Duration `mapstructure:"raw_ttl"`
	FilteredTTL     time.Duration `mapstructure:"filtered_ttl"`
	SubqueryTTL     time.Duration `mapstructure:"subquery_ttl"`
	OptimiserTarget int           `mapstructure:"optimiser_target_offers"`
}

// RateLimitConfig configures the sliding-window and daily counters (§4.3).
type RateLimitConfig struct {
	UniqueSearchWindow     time.Duration `mapstructure:"unique_search_window"`
	UniqueSearchLimit      int           `mapstructure:"unique_search_limit"`
	UniqueSearchDailyLimit int           `mapstructure:"unique_search_daily_limit"`

	TotalRequestWindow     time.Duration `mapstructure:"total_request_window"`
	TotalRequestLimit      int           `mapstructure:"total_request_limit"`
	TotalRequestDailyLimit int           `mapstructure:"total_request_daily_limit"`

	PaginationWindow time.Duration `mapstructure:"pagination_window"`
	PaginationLimit  int           `mapstructure:"pagination_limit"`

	FreeTierMaxDateSpanDays int `mapstructure:"free_tier_max_date_span_days"`
	FreeTierMaxStop         int `mapstructure:"free_tier_max_stop"`
	FreeTierMaxODProduct    int `mapstructure:"free_tier_max_od_product"`
	FreeTierMaxPageSize     int `mapstructure:"free_tier_max_page_size"`
}

// ReliabilityConfig configures the reliability table's TTL cache (§4.4).
type ReliabilityConfig struct {
	CacheTTL                time.Duration `mapstructure:"cache_ttl"`
	DefaultThresholdPercent int           `mapstructure:"default_threshold_percent"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and environment
// variables prefixed AWARD_ITIN, falling back to the defaults below.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/award-itin-engine")

	v.AutomaticEnv()
	v.SetEnvPrefix("AWARD_ITIN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_shutdown_timeout", "30s")

	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "30m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("topology.timeout", "10s")
	v.SetDefault("topology.retries", 3)
	v.SetDefault("availability.timeout", "10s")
	v.SetDefault("availability.retries", 3)

	v.SetDefault("pool.availability_concurrency", 16)
	v.SetDefault("pool.parallel_route_threshold", 25)

	v.SetDefault("cache.raw_ttl", "30m")
	v.SetDefault("cache.filtered_ttl", "30m")
	v.SetDefault("cache.subquery_ttl", "10m")
	v.SetDefault("cache.optimiser_target_offers", 1000)

	v.SetDefault("rate_limit.unique_search_window", "5m")
	v.SetDefault("rate_limit.unique_search_limit", 10)
	v.SetDefault("rate_limit.unique_search_daily_limit", 10)
	v.SetDefault("rate_limit.total_request_window", "5m")
	v.SetDefault("rate_limit.total_request_limit", 200)
	v.SetDefault("rate_limit.total_request_daily_limit", 2000)
	v.SetDefault("rate_limit.pagination_window", "3s")
	v.SetDefault("rate_limit.pagination_limit", 1)
	v.SetDefault("rate_limit.free_tier_max_date_span_days", 3)
	v.SetDefault("rate_limit.free_tier_max_stop", 2)
	v.SetDefault("rate_limit.free_tier_max_od_product", 4)
	v.SetDefault("rate_limit.free_tier_max_page_size", 10)

	v.SetDefault("reliability.cache_ttl", "5m")
	v.SetDefault("reliability.default_threshold_percent", 85)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("city_groups_path", "")
}

func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Pool.AvailabilityConcurrency <= 0 {
		return fmt.Errorf("pool.availability_concurrency must be positive")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Log.Format] {
		return fmt.Errorf("invalid log format: %s", cfg.Log.Format)
	}
	if cfg.Reliability.DefaultThresholdPercent < 0 || cfg.Reliability.DefaultThresholdPercent > 100 {
		return fmt.Errorf("reliability.default_threshold_percent must be within [0,100]")
	}
	return nil
}
