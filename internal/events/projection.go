package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

// ProjectionStores are the read-model stores a Projection writes to.
// Trades may be nil when no time-series store is configured.
type ProjectionStores struct {
	Reps     storage.RepStore
	Events   storage.EventStore
	Trades   storage.TradeStore
	Progress storage.ProjectionProgressStore
}

// Projection writes committed events into the read-model stores and records
// the last projected sequence. Sequences at or below the checkpoint are
// skipped, so replaying the journal into a projection is idempotent.
type Projection struct {
	stores ProjectionStores

	mu     sync.Mutex
	loaded bool
	has    bool
	last   uint64
}

// NewProjection creates a projection over stores.
func NewProjection(stores ProjectionStores) *Projection {
	return &Projection{stores: stores}
}

// Publish projects the events of one transaction.
func (p *Projection) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	seq := events[0].Seq

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadCheckpoint(ctx); err != nil {
		return err
	}
	if p.has && seq <= p.last {
		return nil
	}

	batch := make([]*domain.Event, 0, len(events))
	var trades []*domain.Trade
	for i := range events {
		ev := &events[i]
		batch = append(batch, ev)

		if entry := ev.RepEntry(); entry != nil {
			if err := p.stores.Reps.Insert(ctx, entry); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("project rep entry: %w", err)
			}
		}
		if tr := ev.Trade(); tr != nil {
			trades = append(trades, tr)
		}
	}

	if err := p.stores.Events.InsertBulk(ctx, batch); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("project events: %w", err)
	}
	if p.stores.Trades != nil && len(trades) > 0 {
		if err := p.stores.Trades.InsertBulk(ctx, trades); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("project trades: %w", err)
		}
	}

	if err := p.stores.Progress.SetLastProjected(ctx, seq); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	p.has, p.last = true, seq
	return nil
}

// LastProjected returns the checkpoint, and false if nothing was projected yet.
func (p *Projection) LastProjected(ctx context.Context) (uint64, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadCheckpoint(ctx); err != nil {
		return 0, false, err
	}
	return p.last, p.has, nil
}

func (p *Projection) loadCheckpoint(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	seq, err := p.stores.Progress.GetLastProjected(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load checkpoint: %w", err)
	default:
		p.has, p.last = true, seq
	}
	p.loaded = true
	return nil
}
