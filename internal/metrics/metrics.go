// Package metrics accumulates the route_metrics table spec §6 defines:
// per-route cumulative request count and a day-bucketed count. The
// orchestrator records one request per filtered-cache miss under the
// request's "<origin>-<destination>" key; the individual route groups of
// the availability fan-out are not recorded. It
// also exposes the read path behind the optional debug endpoint
// (§6 SUPPLEMENTED FEATURES).
package metrics

import (
	"context"
	"database/sql"
	"time"
)

// RouteMetric is one row of the route_metrics table: count is the
// all-time cumulative request total for the route, dayCount is today's
// count, firstSeen anchors the average-per-day derivation.
type RouteMetric struct {
	RouteKey  string
	Count     int64
	DayCount  int64
	FirstSeen time.Time
	AvgPerDay float64
}

// Store accumulates and reads route_metrics over Postgres.
type Store struct {
	db *sql.DB
}

// New wraps an open *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordRequest increments the cumulative count for routeKey, resetting
// day_count to 1 if today is a new day for that route or incrementing it
// otherwise. Failures are the caller's concern to log-and-continue:
// metrics are never request-fatal (§4.13's "local recovery" policy for
// non-critical-to-correctness paths).
func (s *Store) RecordRequest(ctx context.Context, routeKey string) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_metrics (route_key, count, day_count, last_day, first_seen)
		VALUES ($1, 1, 1, $2, $2)
		ON CONFLICT (route_key) DO UPDATE SET
			count = route_metrics.count + 1,
			day_count = CASE
				WHEN route_metrics.last_day = $2 THEN route_metrics.day_count + 1
				ELSE 1
			END,
			last_day = $2
	`, routeKey, today)
	return err
}

// Top returns the n routes with the highest cumulative count.
func (s *Store) Top(ctx context.Context, n int) ([]RouteMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT route_key, count, day_count, first_seen
		FROM route_metrics
		ORDER BY count DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RouteMetric
	for rows.Next() {
		var m RouteMetric
		if err := rows.Scan(&m.RouteKey, &m.Count, &m.DayCount, &m.FirstSeen); err != nil {
			return nil, err
		}
		m.AvgPerDay = avgPerDay(m.Count, m.FirstSeen)
		out = append(out, m)
	}
	return out, rows.Err()
}

func avgPerDay(count int64, firstSeen time.Time) float64 {
	days := time.Since(firstSeen).Hours() / 24
	if days < 1 {
		days = 1
	}
	return float64(count) / days
}
