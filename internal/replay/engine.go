package replay

import (
	"context"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/market"
)

// Engine re-executes journaled transactions.
type Engine interface {
	// Seq returns the sequence the engine expects next.
	Seq() uint64

	// Apply is called for each tx in order.
	// Transactions are guaranteed to be contiguous starting at Seq().
	Apply(ctx context.Context, tx *domain.Tx) error
}

type marketEngine struct {
	m *market.Market
}

// MarketEngine replays into m.
func MarketEngine(m *market.Market) Engine {
	return marketEngine{m: m}
}

func (e marketEngine) Seq() uint64 { return e.m.Seq() }

func (e marketEngine) Apply(ctx context.Context, tx *domain.Tx) error {
	_, err := e.m.Apply(ctx, tx)
	return err
}
