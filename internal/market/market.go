// Package market is the entry point for every state-changing operation.
// It runs each operation as one host transaction, appends the committed
// operation to the journal and hands its events to the sinks.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/events"
	"rep-protocol/internal/factory"
	"rep-protocol/internal/idhash"
	"rep-protocol/internal/ledger"
	"rep-protocol/internal/logger"
	"rep-protocol/internal/observability"
	"rep-protocol/internal/storage"
)

var (
	// ErrSequenceMismatch is returned by Apply for a tx that is not the next in sequence.
	ErrSequenceMismatch = errors.New("journal sequence mismatch")

	// ErrDiverged is returned by Apply when re-execution does not reproduce the journaled result.
	ErrDiverged = errors.New("replay diverged from journal")
)

// Options configures a Market. Only Params is required.
type Options struct {
	Params  factory.Params
	Clock   ledger.Clock           // nil means ledger.SystemClock
	Journal storage.TxStore        // nil disables journaling
	Sink    events.Sink            // receives committed events
	Metrics *observability.Metrics // nil records nothing
	Logger  *logger.Logger         // nil discards
}

// Receipt describes a committed operation.
type Receipt struct {
	Tx     *domain.Tx
	Events []domain.Event
}

// Market owns the host ledger, the bank and the factory.
type Market struct {
	host    *ledger.Host
	bank    *ledger.Bank
	factory *factory.Factory
	journal storage.TxStore
	sink    events.Sink
	metrics *observability.Metrics
	log     *logger.Logger

	// nextSeq is written only by root transactions, under the host lock.
	nextSeq atomic.Uint64
}

// New creates an empty market.
func New(opts Options) (*Market, error) {
	host := ledger.NewHost(opts.Clock)
	bank := ledger.NewBank(host)

	f, err := factory.New(host, bank, opts.Params)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Market{
		host:    host,
		bank:    bank,
		factory: f,
		journal: opts.Journal,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		log:     log.With("component", "market"),
	}, nil
}

// Deposit credits amount of backing currency to account. It is the bridge
// through which currency enters the market.
func (m *Market) Deposit(ctx context.Context, account domain.Address, amount *uint256.Int) (*Receipt, error) {
	return m.submit(ctx, &domain.Tx{Kind: domain.TxDeposit, Caller: account, Amount: amount})
}

// CreateRep creates the token of (ticker, creator), paid for by caller.
// The new address is in the receipt's Tx.Token.
func (m *Market) CreateRep(ctx context.Context, caller domain.Address, ticker string, creator domain.Address, royaltyBPS uint32, payment *uint256.Int) (*Receipt, error) {
	return m.submit(ctx, &domain.Tx{
		Kind:       domain.TxCreateRep,
		Caller:     caller,
		Ticker:     ticker,
		Creator:    creator,
		RoyaltyBPS: royaltyBPS,
		Amount:     payment,
	})
}

// Mint buys tokens of token for deposit. The minted amount is in Tx.Output.
func (m *Market) Mint(ctx context.Context, caller, token domain.Address, deposit, minOut *uint256.Int, deadline time.Time) (*Receipt, error) {
	return m.submit(ctx, &domain.Tx{
		Kind:     domain.TxMint,
		Caller:   caller,
		Token:    token,
		Amount:   deposit,
		MinOut:   minOut,
		Deadline: deadline,
	})
}

// Burn sells amount of token. The net currency paid out is in Tx.Output.
func (m *Market) Burn(ctx context.Context, caller, token domain.Address, amount, minOut *uint256.Int, deadline time.Time) (*Receipt, error) {
	return m.submit(ctx, &domain.Tx{
		Kind:     domain.TxBurn,
		Caller:   caller,
		Token:    token,
		Amount:   amount,
		MinOut:   minOut,
		Deadline: deadline,
	})
}

// ChangeProjectAddress hands the beneficiary role of token to newAddress.
func (m *Market) ChangeProjectAddress(ctx context.Context, caller, token, newAddress domain.Address) (*Receipt, error) {
	return m.submit(ctx, &domain.Tx{
		Kind:       domain.TxChangeProject,
		Caller:     caller,
		Token:      token,
		NewAddress: newAddress,
	})
}

// Apply re-executes a journaled tx at its original time without journaling
// it again. tx must be the next in sequence and must reproduce its recorded
// output and ID.
func (m *Market) Apply(ctx context.Context, tx *domain.Tx) (*Receipt, error) {
	if tx == nil || !tx.Kind.Valid() {
		return nil, fmt.Errorf("%w: malformed tx", ErrDiverged)
	}
	return m.execute(ctx, tx, true)
}

// Seq returns the sequence number the next committed tx will get.
func (m *Market) Seq() uint64 {
	return m.nextSeq.Load()
}

func (m *Market) submit(ctx context.Context, tx *domain.Tx) (*Receipt, error) {
	return m.execute(ctx, tx, false)
}

func (m *Market) execute(ctx context.Context, tx *domain.Tx, replay bool) (*Receipt, error) {
	op := string(tx.Kind)
	start := time.Now()

	// A payout receiver calling back into the market runs inside the
	// enclosing tx and is journaled as part of it.
	if m.host.InTx(ctx) {
		rec := tx.Clone()
		rec.Timestamp = m.host.Now(ctx)
		out, err := m.apply(ctx, rec)
		if err != nil {
			return nil, err
		}
		rec.Output = out
		return &Receipt{Tx: rec}, nil
	}

	var committed *domain.Tx
	run := func(ctx context.Context) error {
		rec := tx.Clone()
		rec.Seq = m.nextSeq.Load()
		rec.Timestamp = m.host.Now(ctx)
		rec.TxID = idhash.ComputeTxID(rec.Seq, rec.Kind, rec.Caller, rec.Timestamp.UnixNano())

		if replay && tx.Seq != rec.Seq {
			return fmt.Errorf("%w: got %d, want %d", ErrSequenceMismatch, tx.Seq, rec.Seq)
		}

		out, err := m.apply(ctx, rec)
		if err != nil {
			return err
		}
		rec.Output = out
		rec.EventCount = m.host.Emitted(ctx)

		if replay {
			if rec.TxID != tx.TxID {
				return fmt.Errorf("%w: seq %d tx id %s, journal has %s", ErrDiverged, rec.Seq, rec.TxID, tx.TxID)
			}
			if rec.Token != tx.Token {
				return fmt.Errorf("%w: seq %d token %s, journal has %s", ErrDiverged, rec.Seq, rec.Token, tx.Token)
			}
			if !sameAmount(rec.Output, tx.Output) {
				return fmt.Errorf("%w: seq %d output %s, journal has %s", ErrDiverged, rec.Seq, decOrNil(rec.Output), decOrNil(tx.Output))
			}
			if rec.EventCount != tx.EventCount {
				return fmt.Errorf("%w: seq %d emitted %d events, journal has %d", ErrDiverged, rec.Seq, rec.EventCount, tx.EventCount)
			}
		} else if m.journal != nil {
			// Last step: a journal failure reverts the whole tx.
			if err := m.journal.Append(ctx, rec); err != nil {
				return fmt.Errorf("journal tx: %w", err)
			}
		}

		m.nextSeq.Store(rec.Seq + 1)
		committed = rec
		return nil
	}

	var (
		evs []domain.Event
		err error
	)
	if replay {
		evs, err = m.host.ExecuteAt(ctx, tx.Timestamp, run)
	} else {
		evs, err = m.host.Execute(ctx, run)
	}
	if err != nil {
		kind := domain.ErrorKind(err)
		m.metrics.RecordTxFailure(op, kind, time.Since(start))
		m.log.Debug("tx rejected", "op", op, "kind", kind, "caller", tx.Caller.String(), "error", err)
		return nil, err
	}

	for i := range evs {
		evs[i].TxID = committed.TxID
		evs[i].Seq = committed.Seq
	}

	m.metrics.RecordTx(op, committed.Seq, time.Since(start))
	if replay {
		m.metrics.RecordReplayed()
	} else {
		m.log.Info("tx committed", "op", op, "seq", committed.Seq, "tx_id", committed.TxID, "events", len(evs))
	}

	m.publish(ctx, evs)
	return &Receipt{Tx: committed, Events: evs}, nil
}

// apply runs the operation of tx inside the current transaction and returns
// its output. create_rep also sets tx.Token.
func (m *Market) apply(ctx context.Context, tx *domain.Tx) (*uint256.Int, error) {
	switch tx.Kind {
	case domain.TxDeposit:
		if tx.Caller.IsZero() {
			return nil, fmt.Errorf("%w: deposit account", domain.ErrInvalidAddress)
		}
		if tx.Amount == nil {
			return nil, fmt.Errorf("deposit: %w", domain.ErrZeroAmount)
		}
		return nil, m.bank.Credit(ctx, tx.Caller, tx.Amount)

	case domain.TxCreateRep:
		addr, err := m.factory.CreateRep(ctx, tx.Caller, tx.Ticker, tx.Creator, tx.RoyaltyBPS, tx.Amount)
		if err != nil {
			return nil, err
		}
		tx.Token = addr
		return nil, nil

	case domain.TxMint:
		token, err := m.Token(tx.Token)
		if err != nil {
			return nil, err
		}
		return token.Mint(ctx, tx.Caller, tx.Amount, tx.MinOut, tx.Deadline)

	case domain.TxBurn:
		token, err := m.Token(tx.Token)
		if err != nil {
			return nil, err
		}
		return token.Burn(ctx, tx.Caller, tx.Amount, tx.MinOut, tx.Deadline)

	case domain.TxChangeProject:
		token, err := m.Token(tx.Token)
		if err != nil {
			return nil, err
		}
		return nil, token.ChangeProjectAddress(ctx, tx.Caller, tx.NewAddress)
	}
	return nil, fmt.Errorf("unknown tx kind %q", tx.Kind)
}

// publish hands committed events to the sink. The tx is already committed,
// so failures are logged and counted only.
func (m *Market) publish(ctx context.Context, evs []domain.Event) {
	if m.sink == nil || len(evs) == 0 {
		return
	}
	m.metrics.RecordPublished(len(evs))
	if err := m.sink.Publish(ctx, evs); err != nil {
		m.log.Error("event delivery failed", "seq", evs[0].Seq, "error", err)
	}
}

func sameAmount(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Eq(b)
}

func decOrNil(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}
