package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
)

// Receiver is notified after currency lands on its account, inside the
// sending transaction. Returning an error aborts the whole transaction.
type Receiver interface {
	OnReceive(ctx context.Context, from domain.Address, amount *uint256.Int) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, from domain.Address, amount *uint256.Int) error

func (f ReceiverFunc) OnReceive(ctx context.Context, from domain.Address, amount *uint256.Int) error {
	return f(ctx, from, amount)
}

// Bank holds backing-currency balances. Writes must happen inside
// Host.Execute. Reads are safe from any goroutine but may observe an
// uncommitted transaction; wrap them in Host.View for committed state.
type Bank struct {
	host *Host

	mu        sync.RWMutex
	balances  map[domain.Address]*uint256.Int
	receivers map[domain.Address]Receiver
}

// NewBank creates an empty bank journaling into host.
func NewBank(host *Host) *Bank {
	return &Bank{
		host:      host,
		balances:  make(map[domain.Address]*uint256.Int),
		receivers: make(map[domain.Address]Receiver),
	}
}

// BalanceOf returns a copy of the balance of addr.
func (b *Bank) BalanceOf(addr domain.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.balances[addr]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// SetReceiver registers (or with nil removes) the hook for addr.
func (b *Bank) SetReceiver(addr domain.Address, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r == nil {
		delete(b.receivers, addr)
		return
	}
	b.receivers[addr] = r
}

// Credit adds newly bridged currency to addr.
func (b *Bank) Credit(ctx context.Context, to domain.Address, amount *uint256.Int) error {
	if !b.host.InTx(ctx) {
		return ErrNoTransaction
	}
	if amount.IsZero() {
		return fmt.Errorf("credit: %w", domain.ErrZeroAmount)
	}
	return b.add(ctx, to, amount)
}

// Transfer moves amount from one account to another and then notifies the
// receiver hook of to, if any. A zero amount is a no-op.
func (b *Bank) Transfer(ctx context.Context, from, to domain.Address, amount *uint256.Int) error {
	if !b.host.InTx(ctx) {
		return ErrNoTransaction
	}
	if amount.IsZero() {
		return nil
	}
	if err := b.sub(ctx, from, amount); err != nil {
		return err
	}
	if err := b.add(ctx, to, amount); err != nil {
		return err
	}

	b.mu.RLock()
	r := b.receivers[to]
	b.mu.RUnlock()
	if r != nil {
		if err := r.OnReceive(ctx, from, amount.Clone()); err != nil {
			return fmt.Errorf("receiver %s: %w", to, err)
		}
	}
	return nil
}

func (b *Bank) add(ctx context.Context, addr domain.Address, amount *uint256.Int) error {
	b.mu.Lock()
	prev := b.balanceLocked(addr)
	next, overflow := new(uint256.Int).AddOverflow(prev, amount)
	if overflow {
		b.mu.Unlock()
		return fmt.Errorf("credit %s: %w", addr, domain.ErrOverflow)
	}
	b.balances[addr] = next
	b.mu.Unlock()

	return b.journal(ctx, addr, prev)
}

func (b *Bank) sub(ctx context.Context, addr domain.Address, amount *uint256.Int) error {
	b.mu.Lock()
	prev := b.balanceLocked(addr)
	if prev.Lt(amount) {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s has %s, needs %s", domain.ErrInsufficientBalance, addr, prev.Dec(), amount.Dec())
	}
	b.balances[addr] = new(uint256.Int).Sub(prev, amount)
	b.mu.Unlock()

	return b.journal(ctx, addr, prev)
}

func (b *Bank) journal(ctx context.Context, addr domain.Address, prev *uint256.Int) error {
	return b.host.OnRevert(ctx, func() {
		b.mu.Lock()
		b.balances[addr] = prev
		b.mu.Unlock()
	})
}

func (b *Bank) balanceLocked(addr domain.Address) *uint256.Int {
	if v, ok := b.balances[addr]; ok {
		return v
	}
	return new(uint256.Int)
}
