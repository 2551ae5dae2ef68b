// Package credential rotates provider API keys stored in the pro_key
// table (spec §6, §9): pick the row with the highest remaining quota, then
// decrement it with a compare-and-set so concurrent requests never lose an
// update racing on the same row.
package credential

import (
	"context"
	"database/sql"
	"time"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
)

// Key is one credential row: the key value itself and its remaining quota
// at the time it was selected.
type Key struct {
	ProKey    string
	Remaining int
}

// Store rotates provider keys over the pro_key table.
type Store struct {
	db *sql.DB
}

// New wraps an open *sql.DB (registered with lib/pq's "postgres" driver).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Acquire picks the pro_key row with the highest remaining quota. Returns
// *apperror.Error(KindCredentialExhausted) if no row has remaining > 0.
func (s *Store) Acquire(ctx context.Context) (Key, error) {
	var k Key
	err := s.db.QueryRowContext(ctx, `
		SELECT pro_key, remaining
		FROM pro_key
		WHERE remaining > 0
		ORDER BY remaining DESC
		LIMIT 1
	`).Scan(&k.ProKey, &k.Remaining)

	if err == sql.ErrNoRows {
		return Key{}, apperror.CredentialExhausted()
	}
	if err != nil {
		return Key{}, apperror.Internal(err)
	}
	return k, nil
}

// Consume decrements the key's remaining quota by one using a
// compare-and-set: the update only applies if `remaining` still matches
// the value read at Acquire time, so a concurrent winner's decrement is
// never silently overwritten.
func (s *Store) Consume(ctx context.Context, k Key) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pro_key
		SET remaining = remaining - 1, last_updated = $1
		WHERE pro_key = $2 AND remaining = $3
	`, time.Now().UTC(), k.ProKey, k.Remaining)
	if err != nil {
		return apperror.Internal(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Internal(err)
	}
	if rows == 0 {
		// Lost the race: another request already consumed this row's
		// quota. The caller should Acquire again.
		return apperror.CredentialExhausted()
	}
	return nil
}
