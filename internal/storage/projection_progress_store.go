package storage

import "context"

// ProjectionProgressStore persists the last journal sequence whose events
// were written to the projection stores (registry, events, trades).
// This enables resumption after restarts without duplicating projected rows.
type ProjectionProgressStore interface {
	// GetLastProjected returns the last projected sequence.
	// Returns ErrNotFound if nothing has been projected yet.
	GetLastProjected(ctx context.Context) (uint64, error)

	// SetLastProjected saves the last projected sequence.
	SetLastProjected(ctx context.Context, seq uint64) error
}
