// Package replay rebuilds market state by re-executing the tx journal.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rep-protocol/internal/logger"
	"rep-protocol/internal/storage"
)

// DefaultBatchSize is the number of txs loaded per journal query.
const DefaultBatchSize = 500

// Result summarizes a replay.
type Result struct {
	Applied  int
	NextSeq  uint64
	Duration time.Duration
}

// Runner loads txs from the journal and replays them in sequence order.
type Runner struct {
	txStore   storage.TxStore
	log       *logger.Logger
	batchSize uint64
}

// NewRunner creates a new replay runner. A nil log discards.
func NewRunner(txStore storage.TxStore, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		txStore:   txStore,
		log:       log.With("component", "replay"),
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize sets the journal page size.
func (r *Runner) WithBatchSize(n uint64) *Runner {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// Run replays every journaled tx from engine.Seq() onward. It stops at the
// first failing tx; the error names its sequence.
func (r *Runner) Run(ctx context.Context, engine Engine) (Result, error) {
	began := time.Now()
	res := Result{NextSeq: engine.Seq()}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		from := engine.Seq()
		txs, err := r.txStore.GetRange(ctx, from, from+r.batchSize-1)
		if err != nil {
			return res, fmt.Errorf("load journal from %d: %w", from, err)
		}
		if len(txs) == 0 {
			break
		}

		SortTxs(txs)
		if err := CheckSequence(txs, from); err != nil {
			return res, err
		}

		for _, tx := range txs {
			if err := engine.Apply(ctx, tx); err != nil {
				return res, fmt.Errorf("replay seq %d (%s): %w", tx.Seq, tx.Kind, err)
			}
			res.Applied++
		}
		res.NextSeq = engine.Seq()
	}

	last, err := r.txStore.LastSeq(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return res, fmt.Errorf("load last seq: %w", err)
	case last >= engine.Seq():
		return res, fmt.Errorf("%w: journal ends at %d but replay stopped before %d", ErrInvalidOrdering, last, engine.Seq())
	}

	res.NextSeq = engine.Seq()
	res.Duration = time.Since(began)
	r.log.Info("replay finished", "applied", res.Applied, "next_seq", res.NextSeq, "duration", res.Duration)
	return res, nil
}
