package postgres

import (
	"context"
	"database/sql"
	"errors"

	"meetuphere/internal/domain"
)

type contactRepository struct {
	DB *sql.DB
}

// NewContactRepository returns a domain.ContactRepository implemented with Postgres.
func NewContactRepository(db *sql.DB) domain.ContactRepository {
	return &contactRepository{DB: db}
}

func (r *contactRepository) GetByOwnerID(ctx context.Context, ownerID string) (*domain.ContactRecord, error) {
	query := `
		SELECT owner_id, phone, updated_at
		FROM phone_numbers
		WHERE owner_id = $1
	`
	c := &domain.ContactRecord{}
	err := r.DB.QueryRowContext(ctx, query, ownerID).Scan(&c.OwnerID, &c.PhoneNumber, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *contactRepository) Save(ctx context.Context, c *domain.ContactRecord) error {
	query := `
		INSERT INTO phone_numbers (owner_id, phone, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, query, c.OwnerID, c.PhoneNumber, c.UpdatedAt)
	return err
}
