package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	repStore   storage.RepStore
	tradeStore storage.TradeStore
	decimals   int32
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(repStore storage.RepStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		repStore:   repStore,
		tradeStore: tradeStore,
		decimals:   domain.DefaultDecimals,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithDecimals sets the number of decimals amounts are rendered with.
func (g *Generator) WithDecimals(decimals int32) *Generator {
	g.decimals = decimals
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	entries, err := g.repStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Decimals:    g.decimals,
		Summary: Summary{
			TotalTokens: len(entries),
			MintVolume:  new(uint256.Int),
			BurnVolume:  new(uint256.Int),
			Fees:        new(uint256.Int),
		},
		Tokens: make([]TokenRow, 0, len(entries)),
	}

	traders := make(map[domain.Address]struct{})
	for _, e := range entries {
		trades, err := g.tradeStore.GetByToken(ctx, e.Token)
		if err != nil {
			return nil, fmt.Errorf("load trades of %s: %w", e.Token, err)
		}

		row, err := tokenRow(e, trades)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", e.Token, err)
		}
		report.Tokens = append(report.Tokens, row)

		for _, t := range trades {
			traders[t.Trader] = struct{}{}
			if report.Summary.FirstTrade.IsZero() || t.Timestamp.Before(report.Summary.FirstTrade) {
				report.Summary.FirstTrade = t.Timestamp
			}
			if t.Timestamp.After(report.Summary.LastTrade) {
				report.Summary.LastTrade = t.Timestamp
			}
		}

		s := &report.Summary
		s.TotalTrades += len(trades)
		s.Mints += row.Mints
		s.Burns += row.Burns
		if err := addTo(s.MintVolume, row.MintVolume); err != nil {
			return nil, err
		}
		if err := addTo(s.BurnVolume, row.BurnVolume); err != nil {
			return nil, err
		}
		if err := addTo(s.Fees, row.Fees); err != nil {
			return nil, err
		}
	}
	report.Summary.Traders = len(traders)

	return report, nil
}

// tokenRow folds the trades of one token, which arrive ordered by time.
func tokenRow(e *domain.RepEntry, trades []*domain.Trade) (TokenRow, error) {
	row := TokenRow{
		Ticker:       e.Ticker,
		Token:        e.Token,
		Creator:      e.Creator,
		RoyaltyBPS:   e.RoyaltyBPS,
		CreatedAt:    e.CreatedAt,
		MintVolume:   new(uint256.Int),
		BurnVolume:   new(uint256.Int),
		Fees:         new(uint256.Int),
		TokensMinted: new(uint256.Int),
		TokensBurned: new(uint256.Int),
		Supply:       new(uint256.Int),
		Reserve:      new(uint256.Int),
	}

	traders := make(map[domain.Address]struct{})
	for _, t := range trades {
		traders[t.Trader] = struct{}{}

		switch t.Kind {
		case domain.TxMint:
			row.Mints++
			if err := addTo(row.MintVolume, t.Currency); err != nil {
				return row, err
			}
			if err := addTo(row.TokensMinted, t.TokenAmount); err != nil {
				return row, err
			}
		case domain.TxBurn:
			row.Burns++
			if err := addTo(row.BurnVolume, t.Currency); err != nil {
				return row, err
			}
			if err := addTo(row.TokensBurned, t.TokenAmount); err != nil {
				return row, err
			}
		default:
			return row, fmt.Errorf("trade %s has kind %q", t.TxID, t.Kind)
		}
		if err := addTo(row.Fees, t.Fee); err != nil {
			return row, err
		}

		if !t.Timestamp.Before(row.LastTrade) {
			row.LastTrade = t.Timestamp
			if t.Supply != nil {
				row.Supply = t.Supply.Clone()
			}
			if t.Reserve != nil {
				row.Reserve = t.Reserve.Clone()
			}
		}
	}
	row.Traders = len(traders)
	return row, nil
}

// addTo adds v to acc in place. A nil v adds nothing.
func addTo(acc, v *uint256.Int) error {
	if v == nil {
		return nil
	}
	if _, overflow := acc.AddOverflow(acc, v); overflow {
		return domain.ErrOverflow
	}
	return nil
}
