// Package ledger models the host the market runs on: totally ordered
// all-or-nothing transactions, a backing-currency bank and a clock.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"rep-protocol/internal/domain"
)

// ErrNoTransaction is returned when state is mutated outside Host.Execute.
var ErrNoTransaction = errors.New("ledger: no active transaction")

type frameKey struct{}

// frame is one call level of a transaction. Nested frames share the
// transaction time of the root.
type frame struct {
	host   *Host
	parent *frame
	now    time.Time
	undo   []func()
	events []domain.Event
}

func (f *frame) revert() {
	for i := len(f.undo) - 1; i >= 0; i-- {
		f.undo[i]()
	}
	f.undo = nil
	f.events = nil
}

// Host executes transactions one at a time.
//
// A call to Execute with a context that already carries a frame of the same
// host (a payout receiver re-entering the market) opens a nested frame
// instead of blocking: it sees all writes made so far and, on failure, undoes
// only its own writes. The outer call decides whether they are kept.
//
// Readers outside a transaction go through View, which waits for the
// running transaction to commit or revert.
type Host struct {
	mu    sync.RWMutex
	clock Clock
}

// NewHost creates a host reading time from clock. A nil clock means SystemClock.
func NewHost(clock Clock) *Host {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Host{clock: clock}
}

// Clock returns the host clock.
func (h *Host) Clock() Clock {
	return h.clock
}

// Execute runs fn as a transaction. If fn returns an error or panics every
// write journaled through ctx is undone and buffered events are dropped.
// On success the events emitted by fn are returned in emission order.
func (h *Host) Execute(ctx context.Context, fn func(ctx context.Context) error) ([]domain.Event, error) {
	return h.execute(ctx, nil, fn)
}

// ExecuteAt is Execute with the transaction time pinned to at instead of
// read from the clock. A nested call keeps the time of its root.
func (h *Host) ExecuteAt(ctx context.Context, at time.Time, fn func(ctx context.Context) error) ([]domain.Event, error) {
	return h.execute(ctx, &at, fn)
}

func (h *Host) execute(ctx context.Context, at *time.Time, fn func(ctx context.Context) error) ([]domain.Event, error) {
	if parent := h.frameFrom(ctx); parent != nil {
		return h.run(ctx, &frame{host: h, parent: parent, now: parent.now}, fn)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	if at != nil {
		now = *at
	}
	events, err := h.run(ctx, &frame{host: h, now: now}, fn)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Index = i
	}
	return events, nil
}

func (h *Host) run(ctx context.Context, f *frame, fn func(ctx context.Context) error) (events []domain.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.revert()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, frameKey{}, f)); err != nil {
		f.revert()
		return nil, err
	}

	if f.parent != nil {
		f.parent.undo = append(f.parent.undo, f.undo...)
		f.parent.events = append(f.parent.events, f.events...)
	}
	return f.events, nil
}

func (h *Host) frameFrom(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	if f == nil || f.host != h {
		return nil
	}
	return f
}

// View runs fn while no transaction is in progress, so fn observes committed
// state only. With a ctx that carries a transaction of h, fn runs at once and
// sees the writes made so far.
func (h *Host) View(ctx context.Context, fn func()) {
	if h.frameFrom(ctx) != nil {
		fn()
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn()
}

// Emitted returns the number of events buffered so far by the current frame,
// including those of committed nested frames.
func (h *Host) Emitted(ctx context.Context) int {
	if f := h.frameFrom(ctx); f != nil {
		return len(f.events)
	}
	return 0
}

// InTx reports whether ctx carries a transaction of h.
func (h *Host) InTx(ctx context.Context) bool {
	return h.frameFrom(ctx) != nil
}

// OnRevert journals undo; it runs if the enclosing frame fails.
func (h *Host) OnRevert(ctx context.Context, undo func()) error {
	f := h.frameFrom(ctx)
	if f == nil {
		return ErrNoTransaction
	}
	f.undo = append(f.undo, undo)
	return nil
}

// Emit buffers ev in the current frame. Timestamp is set to the tx time.
func (h *Host) Emit(ctx context.Context, ev domain.Event) error {
	f := h.frameFrom(ctx)
	if f == nil {
		return ErrNoTransaction
	}
	ev.Timestamp = f.now
	f.events = append(f.events, ev)
	return nil
}

// Now returns the transaction time when called inside Execute, the clock
// time otherwise.
func (h *Host) Now(ctx context.Context) time.Time {
	if f := h.frameFrom(ctx); f != nil {
		return f.now
	}
	return h.clock.Now()
}
