package memory

import (
	"context"
	"sync"

	"rep-protocol/internal/storage"
)

// ProjectionProgressStore is an in-memory implementation of storage.ProjectionProgressStore.
type ProjectionProgressStore struct {
	mu   sync.RWMutex
	seq  uint64
	seen bool
}

// NewProjectionProgressStore creates a new in-memory projection progress store.
func NewProjectionProgressStore() *ProjectionProgressStore {
	return &ProjectionProgressStore{}
}

// GetLastProjected returns the last projected sequence.
func (s *ProjectionProgressStore) GetLastProjected(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.seen {
		return 0, storage.ErrNotFound
	}
	return s.seq, nil
}

// SetLastProjected saves the last projected sequence.
func (s *ProjectionProgressStore) SetLastProjected(_ context.Context, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = seq
	s.seen = true
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ProjectionProgressStore = (*ProjectionProgressStore)(nil)
