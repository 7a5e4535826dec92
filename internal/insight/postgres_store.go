package insight

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists analysis results in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id           VARCHAR(36) PRIMARY KEY,
			risk_level   VARCHAR(12) NOT NULL
				CHECK (risk_level IN ('SAFE', 'SUSPICIOUS', 'HIGH_RISK', 'CRITICAL')),
			result       JSONB NOT NULL,
			analyzed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_analyzed_at
			ON risk_assessments (analyzed_at DESC);
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, result *Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, risk_level, result, analyzed_at)
		VALUES ($1, $2, $3, $4)
	`, result.ID, result.RiskLevel.String(), payload, result.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM risk_assessments
		ORDER BY analyzed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r Result
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("unmarshal assessment: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
