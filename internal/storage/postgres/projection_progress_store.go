package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rep-protocol/internal/storage"
)

// ProjectionProgressStore is a PostgreSQL implementation of storage.ProjectionProgressStore.
// Uses a single-row table projection_progress.
type ProjectionProgressStore struct {
	pool *Pool
}

// NewProjectionProgressStore creates a new PostgreSQL projection progress store.
func NewProjectionProgressStore(pool *Pool) *ProjectionProgressStore {
	return &ProjectionProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProjectionProgressStore = (*ProjectionProgressStore)(nil)

// GetLastProjected returns the last projected sequence.
func (s *ProjectionProgressStore) GetLastProjected(ctx context.Context) (uint64, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT seq
		FROM projection_progress
		WHERE id = 1
	`)

	var seq int64
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	return uint64(seq), nil
}

// SetLastProjected saves the last projected sequence.
// Uses upsert to handle initial insert and subsequent updates.
func (s *ProjectionProgressStore) SetLastProjected(ctx context.Context, seq uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projection_progress (id, seq, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET seq = EXCLUDED.seq,
		    updated_at = NOW()
	`, int64(seq))

	return err
}
