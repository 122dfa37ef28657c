package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// TxKind identifies a journaled state-changing operation.
type TxKind string

const (
	TxDeposit       TxKind = "deposit"
	TxCreateRep     TxKind = "create_rep"
	TxMint          TxKind = "mint"
	TxBurn          TxKind = "burn"
	TxChangeProject TxKind = "change_project"
)

// Valid reports whether k is a known kind.
func (k TxKind) Valid() bool {
	switch k {
	case TxDeposit, TxCreateRep, TxMint, TxBurn, TxChangeProject:
		return true
	}
	return false
}

// Tx is one committed operation in the journal. Fields not used by Kind stay zero.
//
//	deposit:        Caller (account credited), Amount
//	create_rep:     Caller, Ticker, Creator, RoyaltyBPS, Amount (payment), Token (result)
//	mint:           Caller, Token, Amount (deposit), MinOut, Deadline, Output (tokens out)
//	burn:           Caller, Token, Amount (tokens), MinOut, Deadline, Output (net return)
//	change_project: Caller, Token, NewAddress
type Tx struct {
	Seq        uint64
	TxID       string
	Kind       TxKind
	Caller     Address
	Token      Address
	Ticker     string
	Creator    Address
	RoyaltyBPS uint32
	Amount     *uint256.Int
	MinOut     *uint256.Int
	Deadline   time.Time
	NewAddress Address
	Output     *uint256.Int
	Timestamp  time.Time

	// EventCount is the number of events the tx emitted, including those of
	// calls made from payout receivers inside it.
	EventCount int
}

// Clone returns a deep copy of t.
func (t *Tx) Clone() *Tx {
	if t == nil {
		return nil
	}
	c := *t
	c.Amount = cloneAmount(t.Amount)
	c.MinOut = cloneAmount(t.MinOut)
	c.Output = cloneAmount(t.Output)
	return &c
}

// Trade is the analytics view of a mint or burn, stored as a time series.
type Trade struct {
	TxID        string
	Index       int // event index within the tx
	Token       Address
	Kind        TxKind // TxMint or TxBurn
	Trader      Address
	TokenAmount *uint256.Int // tokens minted or burned
	Currency    *uint256.Int // deposit for mints, net return for burns
	Fee         *uint256.Int
	Supply      *uint256.Int // after the trade
	Reserve     *uint256.Int // after the trade
	Timestamp   time.Time
}

// Clone returns a deep copy of t.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	c.TokenAmount = cloneAmount(t.TokenAmount)
	c.Currency = cloneAmount(t.Currency)
	c.Fee = cloneAmount(t.Fee)
	c.Supply = cloneAmount(t.Supply)
	c.Reserve = cloneAmount(t.Reserve)
	return &c
}
