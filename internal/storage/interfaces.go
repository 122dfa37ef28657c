package storage

import (
	"context"
	"time"

	"rep-protocol/internal/domain"
)

// RepStore provides access to rep_registry storage.
type RepStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if (ticker, creator) or token exists.
	Insert(ctx context.Context, e *domain.RepEntry) error

	// GetByToken retrieves an entry by token address. Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, token domain.Address) (*domain.RepEntry, error)

	// GetByTickerCreator retrieves the entry for (ticker, creator). Returns ErrNotFound if not exists.
	GetByTickerCreator(ctx context.Context, ticker string, creator domain.Address) (*domain.RepEntry, error)

	// GetByCreator retrieves all entries of a creator, ordered by created_at ASC.
	GetByCreator(ctx context.Context, creator domain.Address) ([]*domain.RepEntry, error)

	// List retrieves all entries, ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.RepEntry, error)
}

// TxStore provides access to the tx_journal: the ordered log of committed operations.
type TxStore interface {
	// Append adds a tx. Returns ErrDuplicateKey if seq or tx_id exists.
	Append(ctx context.Context, tx *domain.Tx) error

	// GetBySeq retrieves a tx by sequence number. Returns ErrNotFound if not exists.
	GetBySeq(ctx context.Context, seq uint64) (*domain.Tx, error)

	// GetRange retrieves txs with seq in [from, to] (inclusive), ordered by seq ASC.
	GetRange(ctx context.Context, from, to uint64) ([]*domain.Tx, error)

	// LastSeq returns the highest sequence number. Returns ErrNotFound if the journal is empty.
	LastSeq(ctx context.Context) (uint64, error)
}

// EventStore provides access to committed event storage.
type EventStore interface {
	// InsertBulk adds events atomically. Fails entire batch on duplicate (tx_id, index).
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByTxID retrieves the events of one tx, ordered by index ASC.
	GetByTxID(ctx context.Context, txID string) ([]*domain.Event, error)

	// GetByToken retrieves events of a token with seq >= fromSeq, ordered by (seq, index) ASC.
	GetByToken(ctx context.Context, token domain.Address, fromSeq uint64) ([]*domain.Event, error)
}

// TradeStore provides access to the trade time series.
type TradeStore interface {
	// InsertBulk adds trades. Fails entire batch on duplicate (tx_id, index).
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByToken retrieves all trades of a token, ordered by timestamp ASC.
	GetByToken(ctx context.Context, token domain.Address) ([]*domain.Trade, error)

	// GetByTimeRange retrieves trades of a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, token domain.Address, start, end time.Time) ([]*domain.Trade, error)
}
