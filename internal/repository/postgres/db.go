package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a Postgres pool and pings it, retrying while the database comes up.
func Connect(databaseURL string, attempts int) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	var db *sql.DB
	var err error
	for i := 0; i < attempts; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Printf("[POSTGRES] Failed to open database: %v, retrying in 2s...", err)
			time.Sleep(2 * time.Second)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			log.Println("[POSTGRES] Connected to PostgreSQL")
			return db, nil
		}
		_ = db.Close()
		log.Printf("[POSTGRES] Failed to ping database: %v, retrying in 2s...", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", attempts, err)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS phone_numbers (
		owner_id   VARCHAR(64) PRIMARY KEY,
		phone      VARCHAR(32) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS processed_checkins (
		dedup_key  CHAR(64) PRIMARY KEY,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS processed_checkins_expires_at_idx ON processed_checkins (expires_at)`,
}

// Migrate creates the tables used by the contact and dedup repositories.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
