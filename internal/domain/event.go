package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// EventKind names an emitted log record.
type EventKind string

const (
	EventRepCreated            EventKind = "RepCreated"
	EventMint                  EventKind = "Mint"
	EventBurn                  EventKind = "Burn"
	EventChangedProjectAddress EventKind = "ChangedProjectAddress"
)

// RepCreatedEvent is emitted by the factory for every new token.
type RepCreatedEvent struct {
	Ticker        string       `json:"ticker"`
	Creator       Address      `json:"creator"`
	Token         Address      `json:"token"`
	RoyaltyBPS    uint32       `json:"royalty_bps"`
	MintingFeeBPS uint32       `json:"minting_fee_bps"`
	CreationFee   *uint256.Int `json:"creation_fee"`
}

// MintEvent records a purchase. Depositor, TokensOut and Deposit are the
// canonical fields; the rest describe how the deposit was split.
type MintEvent struct {
	Depositor  Address      `json:"depositor"`
	TokensOut  *uint256.Int `json:"tokens_out"`
	Deposit    *uint256.Int `json:"deposit"`
	Fee        *uint256.Int `json:"fee"`
	Royalty    *uint256.Int `json:"royalty"`
	OwnerShare *uint256.Int `json:"owner_share"`
	Supply     *uint256.Int `json:"supply"`  // total supply after the mint
	Reserve    *uint256.Int `json:"reserve"` // reserve balance after the mint
}

// BurnEvent records a sale. NetReturn is what the burner received.
type BurnEvent struct {
	Burner     Address      `json:"burner"`
	NetReturn  *uint256.Int `json:"net_return"`
	Amount     *uint256.Int `json:"amount"`
	Gross      *uint256.Int `json:"gross"`
	Fee        *uint256.Int `json:"fee"`
	Royalty    *uint256.Int `json:"royalty"`
	OwnerShare *uint256.Int `json:"owner_share"`
	Supply     *uint256.Int `json:"supply"`
	Reserve    *uint256.Int `json:"reserve"`
}

// ChangedProjectAddressEvent records a beneficiary handover.
type ChangedProjectAddressEvent struct {
	Old Address `json:"old"`
	New Address `json:"new"`
}

// Event is the envelope delivered to sinks. Exactly one payload is set,
// matching Kind.
type Event struct {
	TxID      string    `json:"tx_id"`
	Seq       uint64    `json:"seq"`
	Index     int       `json:"index"` // position within the tx
	Kind      EventKind `json:"kind"`
	Token     Address   `json:"token"`
	Timestamp time.Time `json:"timestamp"`

	RepCreated            *RepCreatedEvent            `json:"rep_created,omitempty"`
	Mint                  *MintEvent                  `json:"mint,omitempty"`
	Burn                  *BurnEvent                  `json:"burn,omitempty"`
	ChangedProjectAddress *ChangedProjectAddressEvent `json:"changed_project_address,omitempty"`
}

// RepEntry builds the registry record described by a RepCreated event.
func (e *Event) RepEntry() *RepEntry {
	if e.RepCreated == nil {
		return nil
	}
	rc := e.RepCreated
	return &RepEntry{
		Ticker:        rc.Ticker,
		Creator:       rc.Creator,
		Token:         rc.Token,
		RoyaltyBPS:    rc.RoyaltyBPS,
		MintingFeeBPS: rc.MintingFeeBPS,
		CreationFee:   cloneAmount(rc.CreationFee),
		TxID:          e.TxID,
		CreatedAt:     e.Timestamp,
	}
}

// Trade builds the analytics record for a Mint or Burn event.
func (e *Event) Trade() *Trade {
	switch {
	case e.Mint != nil:
		m := e.Mint
		return &Trade{
			TxID:        e.TxID,
			Index:       e.Index,
			Token:       e.Token,
			Kind:        TxMint,
			Trader:      m.Depositor,
			TokenAmount: cloneAmount(m.TokensOut),
			Currency:    cloneAmount(m.Deposit),
			Fee:         cloneAmount(m.Fee),
			Supply:      cloneAmount(m.Supply),
			Reserve:     cloneAmount(m.Reserve),
			Timestamp:   e.Timestamp,
		}
	case e.Burn != nil:
		b := e.Burn
		return &Trade{
			TxID:        e.TxID,
			Index:       e.Index,
			Token:       e.Token,
			Kind:        TxBurn,
			Trader:      b.Burner,
			TokenAmount: cloneAmount(b.Amount),
			Currency:    cloneAmount(b.NetReturn),
			Fee:         cloneAmount(b.Fee),
			Supply:      cloneAmount(b.Supply),
			Reserve:     cloneAmount(b.Reserve),
			Timestamp:   e.Timestamp,
		}
	}
	return nil
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.RepCreated != nil {
		rc := *e.RepCreated
		rc.CreationFee = cloneAmount(rc.CreationFee)
		c.RepCreated = &rc
	}
	if e.Mint != nil {
		m := *e.Mint
		m.TokensOut = cloneAmount(m.TokensOut)
		m.Deposit = cloneAmount(m.Deposit)
		m.Fee = cloneAmount(m.Fee)
		m.Royalty = cloneAmount(m.Royalty)
		m.OwnerShare = cloneAmount(m.OwnerShare)
		m.Supply = cloneAmount(m.Supply)
		m.Reserve = cloneAmount(m.Reserve)
		c.Mint = &m
	}
	if e.Burn != nil {
		b := *e.Burn
		b.NetReturn = cloneAmount(b.NetReturn)
		b.Amount = cloneAmount(b.Amount)
		b.Gross = cloneAmount(b.Gross)
		b.Fee = cloneAmount(b.Fee)
		b.Royalty = cloneAmount(b.Royalty)
		b.OwnerShare = cloneAmount(b.OwnerShare)
		b.Supply = cloneAmount(b.Supply)
		b.Reserve = cloneAmount(b.Reserve)
		c.Burn = &b
	}
	if e.ChangedProjectAddress != nil {
		cp := *e.ChangedProjectAddress
		c.ChangedProjectAddress = &cp
	}
	return &c
}
