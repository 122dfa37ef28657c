package memory

import (
	"context"
	"sort"
	"sync"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

type eventKey struct {
	txID  string
	index int
}

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[eventKey]*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[eventKey]*domain.Event),
	}
}

// InsertBulk adds events atomically. Fails entire batch on duplicate (tx_id, index).
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check all keys first so a duplicate leaves the store untouched.
	batch := make(map[eventKey]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.TxID == "" || e.Kind == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey{txID: e.TxID, index: e.Index}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := batch[key]; dup {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, e := range events {
		s.data[eventKey{txID: e.TxID, index: e.Index}] = e.Clone()
	}
	return nil
}

// GetByTxID retrieves the events of one tx, ordered by index ASC.
func (s *EventStore) GetByTxID(_ context.Context, txID string) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for key, e := range s.data {
		if key.txID == txID {
			result = append(result, e.Clone())
		}
	}
	sortEvents(result)
	return result, nil
}

// GetByToken retrieves events of a token with seq >= fromSeq, ordered by (seq, index) ASC.
func (s *EventStore) GetByToken(_ context.Context, token domain.Address, fromSeq uint64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.Token == token && e.Seq >= fromSeq {
			result = append(result, e.Clone())
		}
	}
	sortEvents(result)
	return result, nil
}

func sortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Seq != events[j].Seq {
			return events[i].Seq < events[j].Seq
		}
		return events[i].Index < events[j].Index
	})
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
