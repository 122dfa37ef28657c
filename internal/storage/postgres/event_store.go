package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
// The full envelope is kept as JSONB; key columns are duplicated for indexing.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// InsertBulk adds events atomically. Fails entire batch on duplicate (tx_id, index).
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO rep_events (tx_id, idx, seq, kind, token, timestamp_ns, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, e := range events {
		if e == nil || e.TxID == "" || e.Kind == "" {
			return storage.ErrInvalidInput
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			e.TxID,
			int32(e.Index),
			int64(e.Seq),
			string(e.Kind),
			e.Token.String(),
			e.Timestamp.UnixNano(),
			payload,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTxID retrieves the events of one tx, ordered by index ASC.
func (s *EventStore) GetByTxID(ctx context.Context, txID string) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM rep_events
		WHERE tx_id = $1
		ORDER BY idx ASC
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("get events by tx id: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByToken retrieves events of a token with seq >= fromSeq, ordered by (seq, index) ASC.
func (s *EventStore) GetByToken(ctx context.Context, token domain.Address, fromSeq uint64) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM rep_events
		WHERE token = $1 AND seq >= $2
		ORDER BY seq ASC, idx ASC
	`, token.String(), int64(fromSeq))
	if err != nil {
		return nil, fmt.Errorf("get events by token: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvents decodes JSONB payload rows.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e domain.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
