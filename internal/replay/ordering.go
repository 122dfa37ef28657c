package replay

import (
	"fmt"
	"sort"

	"rep-protocol/internal/domain"
)

// SortTxs orders txs by seq ASC.
func SortTxs(txs []*domain.Tx) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Seq < txs[j].Seq
	})
}

// CheckSequence verifies that txs are exactly from, from+1, ... with no gap
// or repeat.
func CheckSequence(txs []*domain.Tx, from uint64) error {
	want := from
	for _, tx := range txs {
		if tx.Seq != want {
			return fmt.Errorf("%w: expected seq %d, got %d", ErrInvalidOrdering, want, tx.Seq)
		}
		want++
	}
	return nil
}
