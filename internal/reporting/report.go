// Package reporting summarizes market activity from the registry and trade
// projections as Markdown and CSV.
package reporting

import (
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
)

// Report represents the market report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Decimals    int32

	Summary Summary

	// Tokens in registry order (created_at, then ticker).
	Tokens []TokenRow
}

// Summary aggregates over all tokens.
type Summary struct {
	TotalTokens int
	TotalTrades int
	Mints       int
	Burns       int
	Traders     int          // distinct addresses across all tokens
	MintVolume  *uint256.Int // currency deposited
	BurnVolume  *uint256.Int // currency paid out
	Fees        *uint256.Int
	FirstTrade  time.Time // zero when there are no trades
	LastTrade   time.Time
}

// TokenRow is one token's activity.
type TokenRow struct {
	Ticker     string
	Token      domain.Address
	Creator    domain.Address
	RoyaltyBPS uint32
	CreatedAt  time.Time

	Mints        int
	Burns        int
	Traders      int
	MintVolume   *uint256.Int
	BurnVolume   *uint256.Int
	Fees         *uint256.Int
	TokensMinted *uint256.Int
	TokensBurned *uint256.Int

	// State after the last trade; zero when the token was never traded.
	Supply  *uint256.Int
	Reserve *uint256.Int

	LastTrade time.Time
}
