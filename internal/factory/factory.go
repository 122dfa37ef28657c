// Package factory is the single token-creation authority: it validates
// creation requests, collects the creation fee and registers one reserve
// token per (ticker, creator).
package factory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"rep-protocol/internal/curve"
	"rep-protocol/internal/domain"
	"rep-protocol/internal/idhash"
	"rep-protocol/internal/ledger"
	"rep-protocol/internal/reserve"
)

type repKey struct {
	ticker  string
	creator domain.Address
}

// Factory owns the registry. Registry writes are journaled on the host, so a
// failed creation leaves neither an entry nor a token behind.
type Factory struct {
	host   *ledger.Host
	bank   *ledger.Bank
	params Params

	mu      sync.RWMutex
	entries map[repKey]*domain.RepEntry
	tokens  map[domain.Address]*reserve.Token
}

// New creates an empty factory.
func New(host *ledger.Host, bank *ledger.Bank, params Params) (*Factory, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("factory params: %w", err)
	}
	return &Factory{
		host:    host,
		bank:    bank,
		params:  params,
		entries: make(map[repKey]*domain.RepEntry),
		tokens:  make(map[domain.Address]*reserve.Token),
	}, nil
}

// Params returns the factory configuration.
func (f *Factory) Params() Params { return f.params }

// Address returns the factory account.
func (f *Factory) Address() domain.Address { return f.params.Address }

// CreateRep registers a new token for (ticker, creator), paid for by caller.
// payment must equal the creation fee exactly.
func (f *Factory) CreateRep(ctx context.Context, caller domain.Address, ticker string, creator domain.Address, royaltyBPS uint32, payment *uint256.Int) (domain.Address, error) {
	var created domain.Address
	_, err := f.host.Execute(ctx, func(ctx context.Context) error {
		if !curve.ValidBPS(royaltyBPS) {
			return fmt.Errorf("%w: %d bps", domain.ErrInvalidRoyalty, royaltyBPS)
		}
		if payment == nil || !payment.Eq(f.params.CreationFee) {
			return fmt.Errorf("%w: paid %s, fee is %s", domain.ErrIncorrectCreationFee, decOrNil(payment), f.params.CreationFee.Dec())
		}
		if ticker == "" || len(ticker) > domain.MaxTickerLength {
			return fmt.Errorf("%w: %q", domain.ErrInvalidTicker, ticker)
		}
		if creator.IsZero() {
			return fmt.Errorf("%w: creator", domain.ErrInvalidAddress)
		}

		key := repKey{ticker: ticker, creator: creator}
		f.mu.RLock()
		_, exists := f.entries[key]
		f.mu.RUnlock()
		if exists {
			return fmt.Errorf("%w: %q by %s", domain.ErrDuplicateTicker, ticker, creator)
		}

		addr := f.PredictRepAddress(ticker, creator)

		if err := f.bank.Transfer(ctx, caller, f.params.Address, payment); err != nil {
			return fmt.Errorf("collect creation fee: %w", err)
		}
		if f.params.FeePolicy == FeePolicyForward {
			if err := f.bank.Transfer(ctx, f.params.Address, f.params.Owner, payment); err != nil {
				return fmt.Errorf("forward creation fee: %w", err)
			}
		}

		token, err := reserve.New(f.host, f.bank, reserve.Params{
			Address:        addr,
			Ticker:         ticker,
			ProjectAddress: creator,
			RoyaltyBPS:     royaltyBPS,
			MintingFeeBPS:  f.params.MintingFeeBPS,
			SystemOwner:    f.params.Owner,
			Curve:          f.params.Curve,
		})
		if err != nil {
			return fmt.Errorf("instantiate token: %w", err)
		}

		entry := &domain.RepEntry{
			Ticker:        ticker,
			Creator:       creator,
			Token:         addr,
			RoyaltyBPS:    royaltyBPS,
			MintingFeeBPS: f.params.MintingFeeBPS,
			CreationFee:   payment.Clone(),
			CreatedAt:     f.host.Now(ctx),
		}
		f.register(key, entry, token)
		if err := f.host.OnRevert(ctx, func() { f.unregister(key, addr) }); err != nil {
			return err
		}

		if err := f.host.Emit(ctx, domain.Event{
			Kind:  domain.EventRepCreated,
			Token: addr,
			RepCreated: &domain.RepCreatedEvent{
				Ticker:        ticker,
				Creator:       creator,
				Token:         addr,
				RoyaltyBPS:    royaltyBPS,
				MintingFeeBPS: f.params.MintingFeeBPS,
				CreationFee:   payment.Clone(),
			},
		}); err != nil {
			return err
		}

		created = addr
		return nil
	})
	if err != nil {
		return domain.ZeroAddress, err
	}
	return created, nil
}

// GetRepAddress returns the token address of (ticker, creator), or the zero
// address if none was created.
func (f *Factory) GetRepAddress(ticker string, creator domain.Address) domain.Address {
	addr := f.PredictRepAddress(ticker, creator)
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.tokens[addr]; ok {
		return addr
	}
	return domain.ZeroAddress
}

// PredictRepAddress returns the address (ticker, creator) has or would have.
func (f *Factory) PredictRepAddress(ticker string, creator domain.Address) domain.Address {
	return idhash.DeriveRepAddress(f.params.Address, ticker, creator)
}

// Rep returns the token at addr.
func (f *Factory) Rep(addr domain.Address) (*reserve.Token, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.tokens[addr]
	return t, ok
}

// Tokens returns all tokens ordered by creation time, then ticker.
func (f *Factory) Tokens() []*reserve.Token {
	entries := f.Entries()
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*reserve.Token, 0, len(entries))
	for _, e := range entries {
		out = append(out, f.tokens[e.Token])
	}
	return out
}

// Entries returns copies of all registry entries ordered by creation time, then ticker.
func (f *Factory) Entries() []*domain.RepEntry {
	f.mu.RLock()
	out := make([]*domain.RepEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Clone())
	}
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Creator.String() < out[j].Creator.String()
	})
	return out
}

func (f *Factory) register(key repKey, entry *domain.RepEntry, token *reserve.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = entry
	f.tokens[entry.Token] = token
}

func (f *Factory) unregister(key repKey, addr domain.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	delete(f.tokens, addr)
}

func decOrNil(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}
