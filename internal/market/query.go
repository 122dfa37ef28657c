package market

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"rep-protocol/internal/curve"
	"rep-protocol/internal/domain"
	"rep-protocol/internal/factory"
	"rep-protocol/internal/ledger"
	"rep-protocol/internal/reserve"
)

// Queries read committed state: they wait for a running transaction to
// finish. Called with the ctx of a transaction (from a Receiver) they see the
// writes that transaction has made so far.

// Token returns the live reserve token at addr. Reads through it are not
// synchronized with transactions; use TokenState for a committed view.
func (m *Market) Token(addr domain.Address) (*reserve.Token, error) {
	t, ok := m.factory.Rep(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownToken, addr)
	}
	return t, nil
}

// Tokens returns all tokens in creation order.
func (m *Market) Tokens() []*reserve.Token {
	return m.factory.Tokens()
}

// TokenState returns a committed snapshot of token.
func (m *Market) TokenState(ctx context.Context, token domain.Address) (s reserve.State, err error) {
	m.host.View(ctx, func() {
		var t *reserve.Token
		if t, err = m.Token(token); err == nil {
			s = t.Snapshot()
		}
	})
	return s, err
}

// TokenStates returns committed snapshots of all tokens in creation order.
func (m *Market) TokenStates(ctx context.Context) []reserve.State {
	var out []reserve.State
	m.host.View(ctx, func() {
		for _, t := range m.factory.Tokens() {
			out = append(out, t.Snapshot())
		}
	})
	return out
}

// Entries returns all registry entries in creation order.
func (m *Market) Entries(ctx context.Context) []*domain.RepEntry {
	var out []*domain.RepEntry
	m.host.View(ctx, func() { out = m.factory.Entries() })
	return out
}

// GetRepAddress returns the token of (ticker, creator) or the zero address.
func (m *Market) GetRepAddress(ctx context.Context, ticker string, creator domain.Address) domain.Address {
	var addr domain.Address
	m.host.View(ctx, func() { addr = m.factory.GetRepAddress(ticker, creator) })
	return addr
}

// PredictRepAddress returns the address (ticker, creator) has or would have.
func (m *Market) PredictRepAddress(ticker string, creator domain.Address) domain.Address {
	return m.factory.PredictRepAddress(ticker, creator)
}

// Balance returns the backing-currency balance of account.
func (m *Market) Balance(ctx context.Context, account domain.Address) *uint256.Int {
	var bal *uint256.Int
	m.host.View(ctx, func() { bal = m.bank.BalanceOf(account) })
	return bal
}

// TokenBalance returns holder's balance of token.
func (m *Market) TokenBalance(ctx context.Context, token, holder domain.Address) (bal *uint256.Int, err error) {
	m.host.View(ctx, func() {
		var t *reserve.Token
		if t, err = m.Token(token); err == nil {
			bal = t.BalanceOf(holder)
		}
	})
	return bal, err
}

// QuoteMint returns the exact minOut a mint of deposit requires now.
func (m *Market) QuoteMint(ctx context.Context, token domain.Address, deposit *uint256.Int) (out *uint256.Int, err error) {
	if deposit == nil {
		return nil, fmt.Errorf("deposit: %w", domain.ErrInvalidAmount)
	}
	m.host.View(ctx, func() {
		var t *reserve.Token
		if t, err = m.Token(token); err == nil {
			out, err = t.QuoteMint(deposit)
		}
	})
	return out, err
}

// QuoteBurn returns the payout breakdown of burning amount now.
func (m *Market) QuoteBurn(ctx context.Context, token domain.Address, amount *uint256.Int) (b curve.Breakdown, err error) {
	if amount == nil {
		return curve.Breakdown{}, fmt.Errorf("amount: %w", domain.ErrInvalidAmount)
	}
	m.host.View(ctx, func() {
		var t *reserve.Token
		if t, err = m.Token(token); err == nil {
			b, err = t.QuoteBurn(amount)
		}
	})
	return b, err
}

// CalculateSaleReturn is the pure sale function of token's curve.
func (m *Market) CalculateSaleReturn(token domain.Address, supply, reserve, amount *uint256.Int) (*uint256.Int, error) {
	t, err := m.Token(token)
	if err != nil {
		return nil, err
	}
	if supply == nil || reserve == nil || amount == nil {
		return nil, domain.ErrInvalidAmount
	}
	return t.CalculateSaleReturn(supply, reserve, amount)
}

// Params returns the factory configuration.
func (m *Market) Params() factory.Params {
	return m.factory.Params()
}

// SetReceiver installs a hook called whenever account receives currency.
//
// Receivers are not journaled. A market call made from a receiver joins the
// enclosing tx and its events count towards the tx's EventCount, so
// replaying without the same receivers installed fails with ErrDiverged
// instead of silently producing different state.
func (m *Market) SetReceiver(account domain.Address, r ledger.Receiver) {
	m.bank.SetReceiver(account, r)
}
