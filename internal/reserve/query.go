package reserve

import (
	"github.com/holiman/uint256"

	"rep-protocol/internal/curve"
	"rep-protocol/internal/domain"
)

// State is a point-in-time copy of a token.
type State struct {
	Address        domain.Address
	Ticker         string
	TotalSupply    *uint256.Int
	ReserveBalance *uint256.Int
	ProjectAddress domain.Address
	RoyaltyBPS     uint32
	MintingFeeBPS  uint32
	SystemOwner    domain.Address
	Holders        int
}

// Snapshot returns the current state of t. Like the other accessors it reads
// live state; outside a transaction wrap it in Host.View for committed values.
func (t *Token) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return State{
		Address:        t.address,
		Ticker:         t.ticker,
		TotalSupply:    t.totalSupply.Clone(),
		ReserveBalance: t.reserve.Clone(),
		ProjectAddress: t.project,
		RoyaltyBPS:     t.royaltyBPS,
		MintingFeeBPS:  t.mintingFeeBPS,
		SystemOwner:    t.systemOwner,
		Holders:        len(t.balances),
	}
}

func (t *Token) Address() domain.Address { return t.address }
func (t *Token) Ticker() string          { return t.ticker }

func (t *Token) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.Clone()
}

func (t *Token) ReserveBalance() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reserve.Clone()
}

func (t *Token) ProjectAddress() domain.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.project
}

func (t *Token) ProjectRoyaltyInBPS() uint32 { return t.royaltyBPS }
func (t *Token) MintingFeeInBPS() uint32     { return t.mintingFeeBPS }
func (t *Token) SystemOwner() domain.Address { return t.systemOwner }
func (t *Token) Curve() *curve.Curve         { return t.curve }

// BalanceOf returns the token balance of holder.
func (t *Token) BalanceOf(holder domain.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.balances[holder]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// Balances returns a copy of all non-zero holder balances.
func (t *Token) Balances() map[domain.Address]*uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[domain.Address]*uint256.Int, len(t.balances))
	for k, v := range t.balances {
		out[k] = v.Clone()
	}
	return out
}

// CalculateSaleReturn is the pure sale-side curve function used by Burn.
func (t *Token) CalculateSaleReturn(supply, reserve, amount *uint256.Int) (*uint256.Int, error) {
	return t.curve.SaleReturn(supply, reserve, amount)
}

// CalculatePurchaseReturn is the pure purchase-side curve function used by
// Mint, applied to a deposit already net of fee.
func (t *Token) CalculatePurchaseReturn(supply, reserve, netDeposit *uint256.Int) (*uint256.Int, error) {
	return t.curve.PurchaseReturn(supply, reserve, netDeposit)
}

// QuoteMint returns the exact minOut a Mint of deposit would require
// against the current state.
func (t *Token) QuoteMint(deposit *uint256.Int) (*uint256.Int, error) {
	fees := curve.ApplyFee(deposit, t.mintingFeeBPS, t.royaltyBPS)
	supply, reserve := t.state()
	return t.curve.PurchaseReturn(supply, reserve, fees.Net)
}

// QuoteBurn returns the fee breakdown a Burn of amount would produce
// against the current state.
func (t *Token) QuoteBurn(amount *uint256.Int) (curve.Breakdown, error) {
	supply, reserve := t.state()
	gross, err := t.curve.SaleReturn(supply, reserve, amount)
	if err != nil {
		return curve.Breakdown{}, err
	}
	return curve.ApplyFee(gross, t.mintingFeeBPS, t.royaltyBPS), nil
}
