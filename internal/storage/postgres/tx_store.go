package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// TxStore implements storage.TxStore using PostgreSQL.
type TxStore struct {
	pool *Pool
}

// NewTxStore creates a new TxStore.
func NewTxStore(pool *Pool) *TxStore {
	return &TxStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TxStore = (*TxStore)(nil)

const txColumns = `seq, tx_id, kind, caller, token, ticker, creator, royalty_bps, amount, min_out, deadline_ns, new_address, output, timestamp_ns, event_count`

// Append adds a tx. Returns ErrDuplicateKey if seq or tx_id exists.
func (s *TxStore) Append(ctx context.Context, tx *domain.Tx) error {
	if tx == nil || tx.TxID == "" || !tx.Kind.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tx_journal (` + txColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		int64(tx.Seq),
		tx.TxID,
		string(tx.Kind),
		tx.Caller.String(),
		tx.Token.String(),
		tx.Ticker,
		tx.Creator.String(),
		int32(tx.RoyaltyBPS),
		toNumeric(tx.Amount),
		toNumeric(tx.MinOut),
		toNanos(tx.Deadline),
		tx.NewAddress.String(),
		toNumeric(tx.Output),
		tx.Timestamp.UnixNano(),
		int32(tx.EventCount),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append tx: %w", err)
	}
	return nil
}

// GetBySeq retrieves a tx by sequence number. Returns ErrNotFound if not exists.
func (s *TxStore) GetBySeq(ctx context.Context, seq uint64) (*domain.Tx, error) {
	query := `SELECT ` + txColumns + ` FROM tx_journal WHERE seq = $1`

	tx, err := scanTx(s.pool.QueryRow(ctx, query, int64(seq)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tx by seq: %w", err)
	}
	return tx, nil
}

// GetRange retrieves txs with seq in [from, to] (inclusive), ordered by seq ASC.
func (s *TxStore) GetRange(ctx context.Context, from, to uint64) ([]*domain.Tx, error) {
	query := `
		SELECT ` + txColumns + `
		FROM tx_journal
		WHERE seq >= $1 AND seq <= $2
		ORDER BY seq ASC
	`

	// Journal sequences stay far below 2^63.
	upper := int64(to)
	if to > uint64(1<<63-1) {
		upper = 1<<63 - 1
	}

	rows, err := s.pool.Query(ctx, query, int64(from), upper)
	if err != nil {
		return nil, fmt.Errorf("get tx range: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Tx
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tx: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate txs: %w", err)
	}
	return txs, nil
}

// LastSeq returns the highest sequence number. Returns ErrNotFound if the journal is empty.
func (s *TxStore) LastSeq(ctx context.Context) (uint64, error) {
	var last *int64
	if err := s.pool.QueryRow(ctx, `SELECT MAX(seq) FROM tx_journal`).Scan(&last); err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	if last == nil {
		return 0, storage.ErrNotFound
	}
	return uint64(*last), nil
}

// scanTx scans a single row into a Tx.
func scanTx(row pgx.Row) (*domain.Tx, error) {
	var (
		seq                                int64
		kind, caller, token, creator, newA string
		royalty                            int32
		amount, minOut, output             pgtype.Numeric
		deadline                           *int64
		timestamp                          int64
		eventCount                         int32
		tx                                 domain.Tx
	)

	err := row.Scan(
		&seq, &tx.TxID, &kind, &caller, &token, &tx.Ticker, &creator, &royalty,
		&amount, &minOut, &deadline, &newA, &output, &timestamp, &eventCount,
	)
	if err != nil {
		return nil, err
	}

	tx.Seq = uint64(seq)
	tx.Kind = domain.TxKind(kind)
	tx.RoyaltyBPS = uint32(royalty)
	tx.EventCount = int(eventCount)
	tx.Deadline = fromNanos(deadline)
	tx.Timestamp = fromNanos(&timestamp)

	for _, f := range []struct {
		dst *domain.Address
		src string
	}{
		{&tx.Caller, caller},
		{&tx.Token, token},
		{&tx.Creator, creator},
		{&tx.NewAddress, newA},
	} {
		if *f.dst, err = parseAddress(f.src); err != nil {
			return nil, err
		}
	}

	if tx.Amount, err = fromNumeric(amount); err != nil {
		return nil, fmt.Errorf("scan amount: %w", err)
	}
	if tx.MinOut, err = fromNumeric(minOut); err != nil {
		return nil, fmt.Errorf("scan min_out: %w", err)
	}
	if tx.Output, err = fromNumeric(output); err != nil {
		return nil, fmt.Errorf("scan output: %w", err)
	}
	return &tx, nil
}
