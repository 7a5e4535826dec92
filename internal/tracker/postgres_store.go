package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists tracker state in PostgreSQL so context survives
// process restarts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed tracker store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tracker tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS otp_events (
			id          BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_otp_events_occurred_at
			ON otp_events (occurred_at DESC);

		CREATE TABLE IF NOT EXISTS user_context (
			key        VARCHAR(32) PRIMARY KEY,
			value_at   TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func (s *PostgresStore) SaveOTPEvent(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO otp_events (occurred_at) VALUES ($1)`, at)
	if err != nil {
		return fmt.Errorf("save otp event: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadOTPEvents(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at FROM otp_events
		WHERE occurred_at >= $1
		ORDER BY occurred_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("load otp events: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveInteraction(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_context (key, value_at) VALUES ('last_interaction', $1)
		ON CONFLICT (key) DO UPDATE SET value_at = EXCLUDED.value_at
	`, at)
	if err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadInteraction(ctx context.Context) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value_at FROM user_context WHERE key = 'last_interaction'`,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load interaction: %w", err)
	}
	return at, true, nil
}

func (s *PostgresStore) DeleteOTPEventsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM otp_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("delete otp events: %w", err)
	}
	return nil
}
