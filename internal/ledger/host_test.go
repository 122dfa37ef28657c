package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-protocol/internal/domain"
)

var errBoom = errors.New("boom")

func TestExecute_CommitReturnsIndexedEvents(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0).UTC())
	h := NewHost(clock)

	events, err := h.Execute(context.Background(), func(ctx context.Context) error {
		require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventMint}))
		require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventBurn}))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, 1, events[1].Index)
	assert.Equal(t, domain.EventBurn, events[1].Kind)
	assert.Equal(t, clock.Now(), events[0].Timestamp)
}

func TestExecute_FailureRevertsInReverseOrder(t *testing.T) {
	h := NewHost(nil)
	var order []int

	_, err := h.Execute(context.Background(), func(ctx context.Context) error {
		require.NoError(t, h.OnRevert(ctx, func() { order = append(order, 1) }))
		require.NoError(t, h.OnRevert(ctx, func() { order = append(order, 2) }))
		require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventMint}))
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []int{2, 1}, order)
}

func TestExecute_NestedFailureKeepsOuterWrites(t *testing.T) {
	h := NewHost(nil)
	state := 0

	events, err := h.Execute(context.Background(), func(ctx context.Context) error {
		state = 1
		require.NoError(t, h.OnRevert(ctx, func() { state = 0 }))
		require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventMint}))

		_, innerErr := h.Execute(ctx, func(ctx context.Context) error {
			state = 2
			require.NoError(t, h.OnRevert(ctx, func() { state = 1 }))
			require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventBurn}))
			return errBoom
		})
		assert.ErrorIs(t, innerErr, errBoom)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, state)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventMint, events[0].Kind)
}

func TestExecute_OuterFailureRevertsNestedWrites(t *testing.T) {
	h := NewHost(nil)
	state := 0

	_, err := h.Execute(context.Background(), func(ctx context.Context) error {
		_, err := h.Execute(ctx, func(ctx context.Context) error {
			state = 5
			return h.OnRevert(ctx, func() { state = 0 })
		})
		require.NoError(t, err)
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, state)
}

func TestExecute_PanicReverts(t *testing.T) {
	h := NewHost(nil)
	reverted := false

	assert.Panics(t, func() {
		_, _ = h.Execute(context.Background(), func(ctx context.Context) error {
			_ = h.OnRevert(ctx, func() { reverted = true })
			panic("bad")
		})
	})
	assert.True(t, reverted)

	// The host lock was released.
	_, err := h.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestOutsideTransaction(t *testing.T) {
	h := NewHost(nil)
	ctx := context.Background()

	assert.False(t, h.InTx(ctx))
	assert.ErrorIs(t, h.OnRevert(ctx, func() {}), ErrNoTransaction)
	assert.ErrorIs(t, h.Emit(ctx, domain.Event{}), ErrNoTransaction)
}

func TestNow_PinnedWithinTransaction(t *testing.T) {
	clock := NewManualClock(time.Unix(100, 0))
	h := NewHost(clock)

	_, err := h.Execute(context.Background(), func(ctx context.Context) error {
		start := h.Now(ctx)
		clock.Advance(time.Hour)
		assert.Equal(t, start, h.Now(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(3700, 0), h.Now(context.Background()))
}

func TestExecuteAt_PinsTransactionTime(t *testing.T) {
	h := NewHost(NewManualClock(time.Unix(100, 0)))
	at := time.Unix(42, 7)

	events, err := h.ExecuteAt(context.Background(), at, func(ctx context.Context) error {
		assert.Equal(t, at, h.Now(ctx))

		// Nested calls keep the root time.
		_, err := h.ExecuteAt(ctx, time.Unix(999, 0), func(ctx context.Context) error {
			assert.Equal(t, at, h.Now(ctx))
			return h.Emit(ctx, domain.Event{Kind: domain.EventMint})
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].Timestamp)
}

func TestFrames_DistinctHosts(t *testing.T) {
	a := NewHost(nil)
	b := NewHost(nil)

	_, err := a.Execute(context.Background(), func(ctx context.Context) error {
		assert.True(t, a.InTx(ctx))
		assert.False(t, b.InTx(ctx))
		return nil
	})
	require.NoError(t, err)
}

func TestView_WaitsForRunningTransaction(t *testing.T) {
	h := NewHost(nil)
	value := 0

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := h.Execute(context.Background(), func(ctx context.Context) error {
			value = 1
			require.NoError(t, h.OnRevert(ctx, func() { value = 0 }))
			close(started)
			<-release
			return errBoom
		})
		done <- err
	}()
	<-started

	seen := make(chan int, 1)
	go h.View(context.Background(), func() { seen <- value })

	select {
	case v := <-seen:
		t.Fatalf("view ran during transaction and saw %d", v)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.ErrorIs(t, <-done, errBoom)
	assert.Equal(t, 0, <-seen, "view must see the reverted state")
}

func TestView_InsideTransactionSeesOwnWrites(t *testing.T) {
	h := NewHost(nil)
	value := 0

	_, err := h.Execute(context.Background(), func(ctx context.Context) error {
		value = 7
		h.View(ctx, func() { assert.Equal(t, 7, value) })
		return nil
	})
	require.NoError(t, err)
}

func TestEmitted_CountsNestedEvents(t *testing.T) {
	h := NewHost(nil)
	assert.Zero(t, h.Emitted(context.Background()))

	_, err := h.Execute(context.Background(), func(ctx context.Context) error {
		require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventMint}))
		_, err := h.Execute(ctx, func(ctx context.Context) error {
			return h.Emit(ctx, domain.Event{Kind: domain.EventMint})
		})
		require.NoError(t, err)
		_, _ = h.Execute(ctx, func(ctx context.Context) error {
			require.NoError(t, h.Emit(ctx, domain.Event{Kind: domain.EventBurn}))
			return errBoom
		})
		assert.Equal(t, 2, h.Emitted(ctx), "failed nested frame drops its events")
		return nil
	})
	require.NoError(t, err)
}
