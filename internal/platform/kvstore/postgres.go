package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores records in the portal_record table (one jsonb row per
// patient/key pair). Backend failures are reported as ErrStoreUnavailable so
// callers can fall back to in-memory operation.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Load(ctx context.Context, patientID, key string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM portal_record WHERE patient_id = $1 AND record_key = $2`,
		patientID, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStoreUnavailable, key, err)
	}
	return raw, nil
}

func (s *Postgres) Save(ctx context.Context, patientID, key string, value json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portal_record (patient_id, record_key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (patient_id, record_key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		patientID, key, value)
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, patientID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM portal_record WHERE patient_id = $1 AND record_key = $2`,
		patientID, key)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}
