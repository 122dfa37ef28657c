package memory

import (
	"context"
	"sort"
	"sync"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

type repKey struct {
	ticker  string
	creator domain.Address
}

// RepStore is an in-memory implementation of storage.RepStore.
type RepStore struct {
	mu      sync.RWMutex
	data    map[domain.Address]*domain.RepEntry // keyed by token address
	byIdent map[repKey]domain.Address
}

// NewRepStore creates a new in-memory registry store.
func NewRepStore() *RepStore {
	return &RepStore{
		data:    make(map[domain.Address]*domain.RepEntry),
		byIdent: make(map[repKey]domain.Address),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if (ticker, creator) or token exists.
func (s *RepStore) Insert(_ context.Context, e *domain.RepEntry) error {
	if e == nil || e.Ticker == "" || e.Token.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := repKey{ticker: e.Ticker, creator: e.Creator}
	if _, exists := s.byIdent[key]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.data[e.Token]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[e.Token] = e.Clone()
	s.byIdent[key] = e.Token
	return nil
}

// GetByToken retrieves an entry by token address. Returns ErrNotFound if not exists.
func (s *RepStore) GetByToken(_ context.Context, token domain.Address) (*domain.RepEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[token]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return e.Clone(), nil
}

// GetByTickerCreator retrieves the entry for (ticker, creator). Returns ErrNotFound if not exists.
func (s *RepStore) GetByTickerCreator(_ context.Context, ticker string, creator domain.Address) (*domain.RepEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, exists := s.byIdent[repKey{ticker: ticker, creator: creator}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return s.data[token].Clone(), nil
}

// GetByCreator retrieves all entries of a creator, ordered by created_at ASC.
func (s *RepStore) GetByCreator(_ context.Context, creator domain.Address) ([]*domain.RepEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RepEntry
	for _, e := range s.data {
		if e.Creator == creator {
			result = append(result, e.Clone())
		}
	}
	sortEntries(result)
	return result, nil
}

// List retrieves all entries, ordered by created_at ASC.
func (s *RepStore) List(_ context.Context) ([]*domain.RepEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RepEntry, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, e.Clone())
	}
	sortEntries(result)
	return result, nil
}

// sortEntries orders by created_at ASC, ticker ASC.
func sortEntries(entries []*domain.RepEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Ticker < entries[j].Ticker
	})
}

// Verify interface compliance at compile time.
var _ storage.RepStore = (*RepStore)(nil)
