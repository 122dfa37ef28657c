package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/storage"
)

func testEntry(ticker string, creator, token byte, createdAt time.Time) *domain.RepEntry {
	return &domain.RepEntry{
		Ticker:        ticker,
		Creator:       testAddr(creator),
		Token:         testAddr(token),
		RoyaltyBPS:    1000,
		MintingFeeBPS: 25,
		CreationFee:   amt("410000000000000000"),
		TxID:          "tx-" + ticker,
		CreatedAt:     createdAt,
	}
}

func TestRepStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRepStore(pool)
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 123456789, time.UTC)

	entry := testEntry("FAT-REP", 1, 100, createdAt)
	require.NoError(t, store.Insert(ctx, entry))

	got, err := store.GetByToken(ctx, entry.Token)
	require.NoError(t, err)

	assert.Equal(t, entry.Ticker, got.Ticker)
	assert.Equal(t, entry.Creator, got.Creator)
	assert.Equal(t, entry.Token, got.Token)
	assert.Equal(t, entry.RoyaltyBPS, got.RoyaltyBPS)
	assert.Equal(t, entry.MintingFeeBPS, got.MintingFeeBPS)
	assert.Equal(t, entry.CreationFee.Dec(), got.CreationFee.Dec())
	assert.Equal(t, entry.TxID, got.TxID)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))

	got, err = store.GetByTickerCreator(ctx, "FAT-REP", testAddr(1))
	require.NoError(t, err)
	assert.Equal(t, entry.Token, got.Token)
}

func TestRepStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRepStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Insert(ctx, testEntry("FAT-REP", 1, 100, now)))

	err := store.Insert(ctx, testEntry("FAT-REP", 1, 101, now))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.Insert(ctx, testEntry("OTHER", 2, 100, now))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	assert.NoError(t, store.Insert(ctx, testEntry("FAT-REP", 2, 102, now)))
}

func TestRepStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRepStore(pool)
	ctx := context.Background()

	_, err := store.GetByToken(ctx, testAddr(9))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByTickerCreator(ctx, "NOPE", testAddr(9))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepStore_ListAndGetByCreator(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRepStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, testEntry("C", 1, 103, base.Add(2*time.Second))))
	require.NoError(t, store.Insert(ctx, testEntry("A", 1, 101, base)))
	require.NoError(t, store.Insert(ctx, testEntry("B", 2, 102, base.Add(time.Second))))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Ticker)
	assert.Equal(t, "B", all[1].Ticker)
	assert.Equal(t, "C", all[2].Ticker)

	mine, err := store.GetByCreator(ctx, testAddr(1))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "A", mine[0].Ticker)
	assert.Equal(t, "C", mine[1].Ticker)
}
