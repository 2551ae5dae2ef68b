// Package reliability maintains the process-wide reliability table (spec
// §4.4): a map of carrier prefix to ReliabilityRule, refreshed from
// Postgres on a 5-minute TTL with single-flight de-duplication so a cache
// miss under concurrent load triggers exactly one fetch. A failed refresh
// falls back to the previous table if one is cached, or an empty table
// (which the model package's Lookup then resolves permissively, per
// §4.13's "reliability table fetch fails ... treat all flights as
// reliable").
package reliability

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

// Store is the carrier-reliability relational access the cache refreshes
// from. Satisfied by *sql.DB via PostgresStore, faked in tests.
type Store interface {
	FetchRules(ctx context.Context) (model.ReliabilityTable, error)
}

// PostgresStore reads the reliability rule table via lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open *sql.DB (registered with the "postgres"
// driver from github.com/lib/pq).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FetchRules loads every row of the reliability_rule table.
func (s *PostgresStore) FetchRules(ctx context.Context) (model.ReliabilityTable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT carrier_prefix, min_count, cabin_exempt, frequent_flyer_programs
		FROM reliability_rule
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := make(model.ReliabilityTable)
	for rows.Next() {
		var prefix, cabinExempt string
		var minCount int
		var ffpCSV sql.NullString

		if err := rows.Scan(&prefix, &minCount, &cabinExempt, &ffpCSV); err != nil {
			return nil, err
		}

		var ffps []string
		if ffpCSV.Valid && ffpCSV.String != "" {
			ffps = strings.Split(ffpCSV.String, ",")
		}

		table[prefix] = model.ReliabilityRule{
			CarrierPrefix:         prefix,
			MinCount:              minCount,
			CabinExempt:           cabinExempt,
			FrequentFlyerPrograms: ffps,
		}
	}
	return table, rows.Err()
}

// Cache is the single-flight, TTL-bounded reliability table cache.
type Cache struct {
	store Store
	ttl   time.Duration
	group singleflight.Group

	mu        sync.RWMutex
	table     model.ReliabilityTable
	fetchedAt time.Time
}

// New builds a Cache backed by store, refreshing at the configured TTL.
func New(store Store, cfg config.ReliabilityConfig) *Cache {
	return &Cache{store: store, ttl: cfg.CacheTTL}
}

// Table returns the current reliability table, refreshing it if the TTL
// has elapsed. Concurrent callers during a refresh share one fetch.
func (c *Cache) Table(ctx context.Context) model.ReliabilityTable {
	c.mu.RLock()
	fresh := c.table != nil && time.Since(c.fetchedAt) < c.ttl
	current := c.table
	c.mu.RUnlock()

	if fresh {
		return current
	}

	v, _, _ := c.group.Do("table", func() (interface{}, error) {
		logger := logging.Context(ctx).With("component", "reliability")

		table, err := c.store.FetchRules(ctx)
		if err != nil {
			logger.Warn("reliability table refresh failed, falling back to cached table", "error", err)
			c.mu.RLock()
			fallback := c.table
			c.mu.RUnlock()
			if fallback != nil {
				return fallback, nil
			}
			return model.ReliabilityTable{}, nil
		}

		c.mu.Lock()
		c.table = table
		c.fetchedAt = time.Now()
		c.mu.Unlock()

		return table, nil
	})

	return v.(model.ReliabilityTable)
}
