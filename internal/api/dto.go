package api

import (
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/market"
	"rep-protocol/internal/reserve"
)

// Amounts are decimal strings of base units in both directions.

type depositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type createRepRequest struct {
	Caller     string `json:"caller" binding:"required"`
	Ticker     string `json:"ticker" binding:"required"`
	Creator    string `json:"creator" binding:"required"`
	RoyaltyBPS uint32 `json:"royalty_bps"`
	Payment    string `json:"payment" binding:"required"`
}

type mintRequest struct {
	Caller   string `json:"caller" binding:"required"`
	Deposit  string `json:"deposit" binding:"required"`
	MinOut   string `json:"min_out" binding:"required"`
	Deadline int64  `json:"deadline" binding:"required"` // unix seconds
}

type burnRequest struct {
	Caller   string `json:"caller" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	MinOut   string `json:"min_out" binding:"required"`
	Deadline int64  `json:"deadline" binding:"required"`
}

type changeProjectRequest struct {
	Caller     string `json:"caller" binding:"required"`
	NewAddress string `json:"new_address" binding:"required"`
}

type receiptResponse struct {
	Seq       uint64         `json:"seq"`
	TxID      string         `json:"tx_id"`
	Kind      domain.TxKind  `json:"kind"`
	Token     string         `json:"token,omitempty"`
	Output    *uint256.Int   `json:"output,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Events    []domain.Event `json:"events"`
}

func newReceiptResponse(r *market.Receipt) receiptResponse {
	resp := receiptResponse{
		Seq:       r.Tx.Seq,
		TxID:      r.Tx.TxID,
		Kind:      r.Tx.Kind,
		Output:    r.Tx.Output,
		Timestamp: r.Tx.Timestamp,
		Events:    r.Events,
	}
	if !r.Tx.Token.IsZero() {
		resp.Token = r.Tx.Token.String()
	}
	if resp.Events == nil {
		resp.Events = []domain.Event{}
	}
	return resp
}

type accountResponse struct {
	Address domain.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
}

type tokenResponse struct {
	Address        domain.Address `json:"address"`
	Ticker         string         `json:"ticker"`
	TotalSupply    *uint256.Int   `json:"total_supply"`
	ReserveBalance *uint256.Int   `json:"reserve_balance"`
	ProjectAddress domain.Address `json:"project_address"`
	RoyaltyBPS     uint32         `json:"royalty_bps"`
	MintingFeeBPS  uint32         `json:"minting_fee_bps"`
	SystemOwner    domain.Address `json:"system_owner"`
	Holders        int            `json:"holders"`
}

func newTokenResponse(s reserve.State) tokenResponse {
	return tokenResponse{
		Address:        s.Address,
		Ticker:         s.Ticker,
		TotalSupply:    s.TotalSupply,
		ReserveBalance: s.ReserveBalance,
		ProjectAddress: s.ProjectAddress,
		RoyaltyBPS:     s.RoyaltyBPS,
		MintingFeeBPS:  s.MintingFeeBPS,
		SystemOwner:    s.SystemOwner,
		Holders:        s.Holders,
	}
}

type entryResponse struct {
	Ticker        string         `json:"ticker"`
	Creator       domain.Address `json:"creator"`
	Token         domain.Address `json:"token"`
	RoyaltyBPS    uint32         `json:"royalty_bps"`
	MintingFeeBPS uint32         `json:"minting_fee_bps"`
	CreationFee   *uint256.Int   `json:"creation_fee"`
	TxID          string         `json:"tx_id"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newEntryResponse(e *domain.RepEntry) entryResponse {
	return entryResponse{
		Ticker:        e.Ticker,
		Creator:       e.Creator,
		Token:         e.Token,
		RoyaltyBPS:    e.RoyaltyBPS,
		MintingFeeBPS: e.MintingFeeBPS,
		CreationFee:   e.CreationFee,
		TxID:          e.TxID,
		CreatedAt:     e.CreatedAt,
	}
}

type burnQuoteResponse struct {
	Gross      *uint256.Int `json:"gross"`
	Fee        *uint256.Int `json:"fee"`
	Net        *uint256.Int `json:"net"`
	Royalty    *uint256.Int `json:"royalty"`
	OwnerShare *uint256.Int `json:"owner_share"`
}
