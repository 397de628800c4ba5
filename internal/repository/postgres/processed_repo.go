package postgres

import (
	"context"
	"database/sql"
	"time"

	"meetuphere/internal/domain"
)

type processedRepository struct {
	DB  *sql.DB
	now func() time.Time
}

// NewProcessedRepository returns a domain.ProcessedStore backed by the
// processed_checkins table. Expired markers are overwritten on claim.
func NewProcessedRepository(db *sql.DB) domain.ProcessedStore {
	return &processedRepository{DB: db, now: time.Now}
}

func (r *processedRepository) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := r.now()
	query := `
		INSERT INTO processed_checkins (dedup_key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (dedup_key) DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE processed_checkins.expires_at <= $3
	`
	res, err := r.DB.ExecContext(ctx, query, key, now.Add(ttl), now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *processedRepository) Release(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM processed_checkins WHERE dedup_key = $1`, key)
	return err
}

// PurgeExpired deletes markers whose TTL has passed and returns how many were removed.
func PurgeExpired(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM processed_checkins WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
