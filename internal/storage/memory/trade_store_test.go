package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

func testTrade(txID string, token byte, ts time.Time) *domain.Trade {
	return &domain.Trade{
		TxID:        txID,
		Token:       testAddr(token),
		Kind:        domain.TxMint,
		Trader:      testAddr(1),
		TokenAmount: amt(5),
		Currency:    amt(10),
		Fee:         amt(1),
		Supply:      amt(5),
		Reserve:     amt(9),
		Timestamp:   ts,
	}
}

func TestTradeStore_InsertAndQuery(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Trade{
		testTrade("b", 100, baseTime.Add(2*time.Second)),
		testTrade("a", 100, baseTime),
		testTrade("c", 100, baseTime.Add(5*time.Second)),
		testTrade("d", 101, baseTime),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, _ := store.GetByToken(ctx, testAddr(100))
	if len(all) != 3 || all[0].TxID != "a" || all[2].TxID != "c" {
		t.Errorf("GetByToken returned unexpected trades: %+v", all)
	}

	ranged, _ := store.GetByTimeRange(ctx, testAddr(100), baseTime, baseTime.Add(2*time.Second))
	if len(ranged) != 2 {
		t.Errorf("Expected 2 trades in range, got %d", len(ranged))
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, []*domain.Trade{testTrade("a", 100, baseTime)})
	err := store.InsertBulk(ctx, []*domain.Trade{testTrade("a", 100, baseTime)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_SameTxDifferentIndex(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	first := testTrade("a", 100, baseTime)
	second := testTrade("a", 100, baseTime)
	second.Index = 1
	if err := store.InsertBulk(ctx, []*domain.Trade{second, first}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, _ := store.GetByToken(ctx, testAddr(100))
	if len(all) != 2 || all[0].Index != 0 || all[1].Index != 1 {
		t.Errorf("GetByToken returned unexpected trades: %+v", all)
	}
}

func TestProjectionProgressStore(t *testing.T) {
	store := NewProjectionProgressStore()
	ctx := context.Background()

	if _, err := store.GetLastProjected(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_ = store.SetLastProjected(ctx, 0)
	seq, err := store.GetLastProjected(ctx)
	if err != nil || seq != 0 {
		t.Errorf("GetLastProjected: got (%d, %v), want (0, nil)", seq, err)
	}

	_ = store.SetLastProjected(ctx, 7)
	seq, _ = store.GetLastProjected(ctx)
	if seq != 7 {
		t.Errorf("GetLastProjected: got %d, want 7", seq)
	}
}
