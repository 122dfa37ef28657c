package memory

import (
	"context"
	"sort"
	"sync"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// TxStore is an in-memory implementation of storage.TxStore.
type TxStore struct {
	mu    sync.RWMutex
	data  map[uint64]*domain.Tx // keyed by seq
	txIDs map[string]struct{}
	last  uint64
}

// NewTxStore creates a new in-memory tx journal.
func NewTxStore() *TxStore {
	return &TxStore{
		data:  make(map[uint64]*domain.Tx),
		txIDs: make(map[string]struct{}),
	}
}

// Append adds a tx. Returns ErrDuplicateKey if seq or tx_id exists.
func (s *TxStore) Append(_ context.Context, tx *domain.Tx) error {
	if tx == nil || tx.TxID == "" || !tx.Kind.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.Seq]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.txIDs[tx.TxID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[tx.Seq] = tx.Clone()
	s.txIDs[tx.TxID] = struct{}{}
	if len(s.data) == 1 || tx.Seq > s.last {
		s.last = tx.Seq
	}
	return nil
}

// GetBySeq retrieves a tx by sequence number. Returns ErrNotFound if not exists.
func (s *TxStore) GetBySeq(_ context.Context, seq uint64) (*domain.Tx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.data[seq]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return tx.Clone(), nil
}

// GetRange retrieves txs with seq in [from, to] (inclusive), ordered by seq ASC.
func (s *TxStore) GetRange(_ context.Context, from, to uint64) ([]*domain.Tx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Tx
	for seq, tx := range s.data {
		if seq >= from && seq <= to {
			result = append(result, tx.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// LastSeq returns the highest sequence number. Returns ErrNotFound if the journal is empty.
func (s *TxStore) LastSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return 0, storage.ErrNotFound
	}
	return s.last, nil
}

// Verify interface compliance at compile time.
var _ storage.TxStore = (*TxStore)(nil)
