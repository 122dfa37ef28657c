package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

type tradeKey struct {
	txID  string
	index int
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[tradeKey]*domain.Trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[tradeKey]*domain.Trade),
	}
}

// InsertBulk adds trades. Fails entire batch on duplicate (tx_id, index).
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[tradeKey]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TxID == "" {
			return storage.ErrInvalidInput
		}
		key := tradeKey{txID: t.TxID, index: t.Index}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := batch[key]; dup {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, t := range trades {
		s.data[tradeKey{txID: t.TxID, index: t.Index}] = t.Clone()
	}
	return nil
}

// GetByToken retrieves all trades of a token, ordered by timestamp ASC.
func (s *TradeStore) GetByToken(_ context.Context, token domain.Address) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Token == token {
			result = append(result, t.Clone())
		}
	}
	sortTrades(result)
	return result, nil
}

// GetByTimeRange retrieves trades of a token within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(_ context.Context, token domain.Address, start, end time.Time) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Token == token && !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
			result = append(result, t.Clone())
		}
	}
	sortTrades(result)
	return result, nil
}

func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].Timestamp.Equal(trades[j].Timestamp) {
			return trades[i].Timestamp.Before(trades[j].Timestamp)
		}
		if trades[i].TxID != trades[j].TxID {
			return trades[i].TxID < trades[j].TxID
		}
		return trades[i].Index < trades[j].Index
	})
}

// Verify interface compliance at compile time.
var _ storage.TradeStore = (*TradeStore)(nil)
