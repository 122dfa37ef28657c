package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

func testTrade(txID string, token byte, kind domain.TxKind, ts time.Time) *domain.Trade {
	return &domain.Trade{
		TxID:        txID,
		Token:       testAddr(token),
		Kind:        kind,
		Trader:      testAddr(3),
		TokenAmount: amt("62174361888348346023"),
		Currency:    amt("40000000000000000000"),
		Fee:         amt("100000000000000000"),
		Supply:      amt("62174361888348346023"),
		Reserve:     amt("39900000000000000000"),
		Timestamp:   ts,
	}
}

func TestTradeStore_InsertBulkAndGetByToken(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 123456789, time.UTC)

	trades := []*domain.Trade{
		testTrade("tx2", 100, domain.TxBurn, base.Add(time.Second)),
		testTrade("tx1", 100, domain.TxMint, base),
		testTrade("tx3", 101, domain.TxMint, base),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByToken(ctx, testAddr(100))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "tx1", got[0].TxID)
	assert.Equal(t, domain.TxMint, got[0].Kind)
	assert.Equal(t, testAddr(3), got[0].Trader)
	assert.Equal(t, "62174361888348346023", got[0].TokenAmount.Dec())
	assert.Equal(t, "39900000000000000000", got[0].Reserve.Dec())
	assert.True(t, base.Equal(got[0].Timestamp), "nanosecond precision kept")
	assert.Equal(t, "tx2", got[1].TxID)
	assert.Equal(t, domain.TxBurn, got[1].Kind)
}

func TestTradeStore_LargeAmounts(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()

	maxU256 := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	tr := testTrade("tx-max", 100, domain.TxMint, time.Now().UTC())
	tr.Supply = amt(maxU256)
	tr.Fee = nil
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{tr}))

	got, err := store.GetByToken(ctx, testAddr(100))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, maxU256, got[0].Supply.Dec())
	assert.True(t, got[0].Fee.IsZero())
}

func TestTradeStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{testTrade("tx1", 100, domain.TxMint, now)}))

	err := store.InsertBulk(ctx, []*domain.Trade{testTrade("tx1", 100, domain.TxMint, now)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.Trade{
		testTrade("tx2", 100, domain.TxMint, now),
		testTrade("tx2", 100, domain.TxMint, now),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByToken(ctx, testAddr(100))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var trades []*domain.Trade
	for i, id := range []string{"a", "b", "c", "d"} {
		trades = append(trades, testTrade(id, 100, domain.TxMint, base.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByTimeRange(ctx, testAddr(100), base.Add(time.Minute), base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].TxID)
	assert.Equal(t, "c", got[1].TxID)

	none, err := store.GetByTimeRange(ctx, testAddr(101), base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}
