package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// MaxTickerLength bounds the ticker size in bytes.
const MaxTickerLength = 32

// RepEntry is the registry record binding (Ticker, Creator) to one reserve token.
// Immutable once created.
type RepEntry struct {
	Ticker        string
	Creator       Address
	Token         Address
	RoyaltyBPS    uint32
	MintingFeeBPS uint32
	CreationFee   *uint256.Int
	TxID          string    // journal tx that created the entry
	CreatedAt     time.Time // ledger time of creation
}

// Clone returns a deep copy of e.
func (e *RepEntry) Clone() *RepEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.CreationFee = cloneAmount(e.CreationFee)
	return &c
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return v.Clone()
}
