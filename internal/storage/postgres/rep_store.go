package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// RepStore implements storage.RepStore using PostgreSQL.
type RepStore struct {
	pool *Pool
}

// NewRepStore creates a new RepStore.
func NewRepStore(pool *Pool) *RepStore {
	return &RepStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RepStore = (*RepStore)(nil)

const repColumns = `token, ticker, creator, royalty_bps, minting_fee_bps, creation_fee, tx_id, created_at_ns`

// Insert adds a new entry. Returns ErrDuplicateKey if (ticker, creator) or token exists.
func (s *RepStore) Insert(ctx context.Context, e *domain.RepEntry) error {
	if e == nil || e.Ticker == "" || e.Token.IsZero() || e.CreationFee == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO rep_registry (` + repColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Token.String(),
		e.Ticker,
		e.Creator.String(),
		int32(e.RoyaltyBPS),
		int32(e.MintingFeeBPS),
		toNumeric(e.CreationFee),
		e.TxID,
		e.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rep entry: %w", err)
	}
	return nil
}

// GetByToken retrieves an entry by token address. Returns ErrNotFound if not exists.
func (s *RepStore) GetByToken(ctx context.Context, token domain.Address) (*domain.RepEntry, error) {
	query := `SELECT ` + repColumns + ` FROM rep_registry WHERE token = $1`

	e, err := scanRepEntry(s.pool.QueryRow(ctx, query, token.String()))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rep entry by token: %w", err)
	}
	return e, nil
}

// GetByTickerCreator retrieves the entry for (ticker, creator). Returns ErrNotFound if not exists.
func (s *RepStore) GetByTickerCreator(ctx context.Context, ticker string, creator domain.Address) (*domain.RepEntry, error) {
	query := `SELECT ` + repColumns + ` FROM rep_registry WHERE ticker = $1 AND creator = $2`

	e, err := scanRepEntry(s.pool.QueryRow(ctx, query, ticker, creator.String()))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rep entry by ticker: %w", err)
	}
	return e, nil
}

// GetByCreator retrieves all entries of a creator, ordered by created_at ASC.
func (s *RepStore) GetByCreator(ctx context.Context, creator domain.Address) ([]*domain.RepEntry, error) {
	query := `
		SELECT ` + repColumns + `
		FROM rep_registry
		WHERE creator = $1
		ORDER BY created_at_ns ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, creator.String())
	if err != nil {
		return nil, fmt.Errorf("get rep entries by creator: %w", err)
	}
	defer rows.Close()

	return scanRepEntries(rows)
}

// List retrieves all entries, ordered by created_at ASC.
func (s *RepStore) List(ctx context.Context) ([]*domain.RepEntry, error) {
	query := `
		SELECT ` + repColumns + `
		FROM rep_registry
		ORDER BY created_at_ns ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rep entries: %w", err)
	}
	defer rows.Close()

	return scanRepEntries(rows)
}

// scanRepEntry scans a single row into a RepEntry.
func scanRepEntry(row pgx.Row) (*domain.RepEntry, error) {
	var (
		token, creator      string
		royalty, mintingFee int32
		fee                 pgtype.Numeric
		createdAt           int64
		e                   domain.RepEntry
	)

	if err := row.Scan(&token, &e.Ticker, &creator, &royalty, &mintingFee, &fee, &e.TxID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if e.Token, err = parseAddress(token); err != nil {
		return nil, err
	}
	if e.Creator, err = parseAddress(creator); err != nil {
		return nil, err
	}
	if e.CreationFee, err = fromNumeric(fee); err != nil {
		return nil, fmt.Errorf("scan creation_fee: %w", err)
	}
	e.RoyaltyBPS = uint32(royalty)
	e.MintingFeeBPS = uint32(mintingFee)
	e.CreatedAt = fromNanos(&createdAt)
	return &e, nil
}

// scanRepEntries scans multiple rows into a slice of RepEntry.
func scanRepEntries(rows pgx.Rows) ([]*domain.RepEntry, error) {
	var entries []*domain.RepEntry
	for rows.Next() {
		e, err := scanRepEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rep entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rep entries: %w", err)
	}
	return entries, nil
}
