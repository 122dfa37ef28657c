package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `tx_id, event_index, token, kind, trader, token_amount, currency, fee, supply, reserve, timestamp`

// InsertBulk adds trades. Fails entire batch on duplicate (tx_id, index).
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	type key struct {
		txID  string
		index int
	}
	seen := make(map[key]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TxID == "" || t.Index < 0 {
			return storage.ErrInvalidInput
		}
		k := key{t.TxID, t.Index}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, t := range trades {
		exists, err := s.exists(ctx, t.TxID, t.Index)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO rep_trades (`+tradeColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.TxID, uint32(t.Index), t.Token.String(), string(t.Kind), t.Trader.String(),
			toBig(t.TokenAmount), toBig(t.Currency), toBig(t.Fee),
			toBig(t.Supply), toBig(t.Reserve),
			t.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByToken retrieves all trades of a token, ordered by timestamp ASC.
func (s *TradeStore) GetByToken(ctx context.Context, token domain.Address) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM rep_trades
		WHERE token = ?
		ORDER BY timestamp ASC, tx_id ASC, event_index ASC
	`

	rows, err := s.conn.Query(ctx, query, token.String())
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades of a token within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(ctx context.Context, token domain.Address, start, end time.Time) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM rep_trades
		WHERE token = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, tx_id ASC, event_index ASC
	`

	rows, err := s.conn.Query(ctx, query, token.String(), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *TradeStore) exists(ctx context.Context, txID string, index int) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM rep_trades WHERE tx_id = ? AND event_index = ?`, txID, uint32(index)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTrades(rows chRows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var (
			t                                         domain.Trade
			index                                     uint32
			token, kind, trader                       string
			tokenAmount, currency, fee, supply, resrv big.Int
		)

		err := rows.Scan(
			&t.TxID, &index, &token, &kind, &trader,
			&tokenAmount, &currency, &fee, &supply, &resrv,
			&t.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		if t.Token, err = domain.ParseAddress(token); err != nil {
			return nil, fmt.Errorf("scan trade token: %w", err)
		}
		if t.Trader, err = domain.ParseAddress(trader); err != nil {
			return nil, fmt.Errorf("scan trade trader: %w", err)
		}
		t.Index = int(index)
		t.Kind = domain.TxKind(kind)
		t.TokenAmount = fromBig(&tokenAmount)
		t.Currency = fromBig(&currency)
		t.Fee = fromBig(&fee)
		t.Supply = fromBig(&supply)
		t.Reserve = fromBig(&resrv)
		t.Timestamp = t.Timestamp.UTC()

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

// toBig maps nil to zero; UInt256 columns are not nullable.
func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func fromBig(v *big.Int) *uint256.Int {
	u, _ := uint256.FromBig(v)
	return u
}
