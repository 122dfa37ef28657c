// Package reserve implements the reserve token: a fungible balance ledger
// whose supply is minted against and burned for the backing currency along a
// bonding curve.
package reserve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/curve"
	"rep-protocol/internal/domain"
	"rep-protocol/internal/ledger"
)

// Params configures a new token. Everything except ProjectAddress is fixed
// for the token's lifetime.
type Params struct {
	Address        domain.Address
	Ticker         string
	ProjectAddress domain.Address
	RoyaltyBPS     uint32
	MintingFeeBPS  uint32
	SystemOwner    domain.Address
	Curve          *curve.Curve
}

// Validate checks p.
func (p Params) Validate() error {
	if p.Address.IsZero() {
		return fmt.Errorf("%w: token address", domain.ErrInvalidAddress)
	}
	if p.ProjectAddress.IsZero() {
		return fmt.Errorf("%w: project address", domain.ErrInvalidAddress)
	}
	if p.SystemOwner.IsZero() {
		return fmt.Errorf("%w: system owner", domain.ErrInvalidAddress)
	}
	if !curve.ValidBPS(p.RoyaltyBPS) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRoyalty, p.RoyaltyBPS)
	}
	if !curve.ValidBPS(p.MintingFeeBPS) {
		return fmt.Errorf("minting fee %d bps out of range", p.MintingFeeBPS)
	}
	if p.Curve == nil {
		return fmt.Errorf("curve is required")
	}
	return nil
}

// Token is one reserve token instance. Its currency reserve is the bank
// balance of Address, which equals ReserveBalance after every committed
// transaction.
type Token struct {
	host  *ledger.Host
	bank  *ledger.Bank
	curve *curve.Curve

	address       domain.Address
	ticker        string
	royaltyBPS    uint32
	mintingFeeBPS uint32
	systemOwner   domain.Address

	mu          sync.RWMutex
	totalSupply *uint256.Int
	reserve     *uint256.Int
	project     domain.Address
	balances    map[domain.Address]*uint256.Int
}

// New creates an active token with zero supply.
func New(host *ledger.Host, bank *ledger.Bank, p Params) (*Token, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Token{
		host:          host,
		bank:          bank,
		curve:         p.Curve,
		address:       p.Address,
		ticker:        p.Ticker,
		royaltyBPS:    p.RoyaltyBPS,
		mintingFeeBPS: p.MintingFeeBPS,
		systemOwner:   p.SystemOwner,
		totalSupply:   new(uint256.Int),
		reserve:       new(uint256.Int),
		project:       p.ProjectAddress,
		balances:      make(map[domain.Address]*uint256.Int),
	}, nil
}

// Mint buys tokens with deposit taken from caller's currency balance.
// minOut must equal the computed output exactly. Returns the tokens minted.
func (t *Token) Mint(ctx context.Context, caller domain.Address, deposit, minOut *uint256.Int, deadline time.Time) (*uint256.Int, error) {
	var tokensOut *uint256.Int
	_, err := t.host.Execute(ctx, func(ctx context.Context) error {
		if t.host.Now(ctx).After(deadline) {
			return domain.ErrDeadlineExpired
		}
		if deposit == nil || deposit.IsZero() {
			return fmt.Errorf("deposit: %w", domain.ErrZeroAmount)
		}
		if err := t.bank.Transfer(ctx, caller, t.address, deposit); err != nil {
			return fmt.Errorf("collect deposit: %w", err)
		}

		fees := curve.ApplyFee(deposit, t.mintingFeeBPS, t.royaltyBPS)
		supply, reserve := t.state()

		out, err := t.curve.PurchaseReturn(supply, reserve, fees.Net)
		if err != nil {
			return err
		}
		if out.IsZero() {
			return fmt.Errorf("tokens out: %w", domain.ErrZeroAmount)
		}
		if minOut == nil || !out.Eq(minOut) {
			return fmt.Errorf("%w: computed %s, declared %s", domain.ErrOutputMismatch, out.Dec(), decOrNil(minOut))
		}

		newSupply, overflow := new(uint256.Int).AddOverflow(supply, out)
		if overflow {
			return fmt.Errorf("supply: %w", domain.ErrOverflow)
		}
		newReserve, overflow := new(uint256.Int).AddOverflow(reserve, fees.Net)
		if overflow {
			return fmt.Errorf("reserve: %w", domain.ErrOverflow)
		}
		newBalance := new(uint256.Int).Add(t.BalanceOf(caller), out)

		// All token state is final before any currency leaves the token.
		project := t.apply(ctx, newSupply, newReserve, caller, newBalance)
		if err := t.host.Emit(ctx, domain.Event{
			Kind:  domain.EventMint,
			Token: t.address,
			Mint: &domain.MintEvent{
				Depositor:  caller,
				TokensOut:  out.Clone(),
				Deposit:    deposit.Clone(),
				Fee:        fees.Fee,
				Royalty:    fees.Royalty,
				OwnerShare: fees.OwnerShare,
				Supply:     newSupply.Clone(),
				Reserve:    newReserve.Clone(),
			},
		}); err != nil {
			return err
		}

		if err := t.payFees(ctx, project, fees); err != nil {
			return err
		}
		tokensOut = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokensOut, nil
}

// Burn sells amount of caller's tokens. The net return after the fee must be
// at least minOut. Returns the currency paid to caller.
func (t *Token) Burn(ctx context.Context, caller domain.Address, amount, minOut *uint256.Int, deadline time.Time) (*uint256.Int, error) {
	var netReturn *uint256.Int
	_, err := t.host.Execute(ctx, func(ctx context.Context) error {
		if t.host.Now(ctx).After(deadline) {
			return domain.ErrDeadlineExpired
		}
		if amount == nil || amount.IsZero() {
			return fmt.Errorf("amount: %w", domain.ErrZeroAmount)
		}
		balance := t.BalanceOf(caller)
		if balance.Lt(amount) {
			return fmt.Errorf("%w: holds %s, burning %s", domain.ErrInsufficientBalance, balance.Dec(), amount.Dec())
		}

		supply, reserve := t.state()
		gross, err := t.curve.SaleReturn(supply, reserve, amount)
		if err != nil {
			return err
		}
		fees := curve.ApplyFee(gross, t.mintingFeeBPS, t.royaltyBPS)
		if minOut != nil && fees.Net.Lt(minOut) {
			return fmt.Errorf("%w: net %s, minimum %s", domain.ErrSlippageExceeded, fees.Net.Dec(), minOut.Dec())
		}

		newSupply := new(uint256.Int).Sub(supply, amount)
		newReserve := new(uint256.Int).Sub(reserve, gross)
		newBalance := new(uint256.Int).Sub(balance, amount)

		project := t.apply(ctx, newSupply, newReserve, caller, newBalance)
		if err := t.host.Emit(ctx, domain.Event{
			Kind:  domain.EventBurn,
			Token: t.address,
			Burn: &domain.BurnEvent{
				Burner:     caller,
				NetReturn:  fees.Net.Clone(),
				Amount:     amount.Clone(),
				Gross:      gross.Clone(),
				Fee:        fees.Fee,
				Royalty:    fees.Royalty,
				OwnerShare: fees.OwnerShare,
				Supply:     newSupply.Clone(),
				Reserve:    newReserve.Clone(),
			},
		}); err != nil {
			return err
		}

		if err := t.bank.Transfer(ctx, t.address, caller, fees.Net); err != nil {
			return fmt.Errorf("pay burner: %w", err)
		}
		if err := t.payFees(ctx, project, fees); err != nil {
			return err
		}
		netReturn = fees.Net
		return nil
	})
	if err != nil {
		return nil, err
	}
	return netReturn, nil
}

// ChangeProjectAddress hands the royalty beneficiary role to newAddress.
// Only the current project address may call it.
func (t *Token) ChangeProjectAddress(ctx context.Context, caller, newAddress domain.Address) error {
	_, err := t.host.Execute(ctx, func(ctx context.Context) error {
		t.mu.Lock()
		old := t.project
		if caller != old {
			t.mu.Unlock()
			return domain.ErrIncorrectPrivilege
		}
		if newAddress.IsZero() {
			t.mu.Unlock()
			return fmt.Errorf("%w: new project address is zero", domain.ErrInvalidAddress)
		}
		t.project = newAddress
		t.mu.Unlock()

		if err := t.host.OnRevert(ctx, func() {
			t.mu.Lock()
			t.project = old
			t.mu.Unlock()
		}); err != nil {
			return err
		}
		return t.host.Emit(ctx, domain.Event{
			Kind:                  domain.EventChangedProjectAddress,
			Token:                 t.address,
			ChangedProjectAddress: &domain.ChangedProjectAddressEvent{Old: old, New: newAddress},
		})
	})
	return err
}

func (t *Token) payFees(ctx context.Context, project domain.Address, fees curve.Breakdown) error {
	if err := t.bank.Transfer(ctx, t.address, project, fees.Royalty); err != nil {
		return fmt.Errorf("pay royalty: %w", err)
	}
	if err := t.bank.Transfer(ctx, t.address, t.systemOwner, fees.OwnerShare); err != nil {
		return fmt.Errorf("pay owner: %w", err)
	}
	return nil
}

// apply writes supply, reserve and one holder balance, journaling the
// previous values. Returns the project address current at write time.
func (t *Token) apply(ctx context.Context, supply, reserve *uint256.Int, holder domain.Address, balance *uint256.Int) domain.Address {
	t.mu.Lock()
	prevSupply, prevReserve := t.totalSupply, t.reserve
	prevBalance, hadBalance := t.balances[holder]
	t.totalSupply = supply
	t.reserve = reserve
	t.setBalanceLocked(holder, balance)
	project := t.project
	t.mu.Unlock()

	// Callers run inside Execute, so journaling cannot fail.
	_ = t.host.OnRevert(ctx, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.totalSupply = prevSupply
		t.reserve = prevReserve
		if hadBalance {
			t.balances[holder] = prevBalance
		} else {
			delete(t.balances, holder)
		}
	})
	return project
}

func (t *Token) setBalanceLocked(holder domain.Address, balance *uint256.Int) {
	if balance.IsZero() {
		delete(t.balances, holder)
		return
	}
	t.balances[holder] = balance
}

func (t *Token) state() (supply, reserve *uint256.Int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.Clone(), t.reserve.Clone()
}

func decOrNil(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}
