package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LedgerEntry{}))
	return db
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	entry := &models.LedgerEntry{
		ItemID:  uuid.New(),
		TxnType: enums.TxnTypeReceive,
		Qty:     decimal.NewFromInt(40),
	}
	require.NoError(t, repo.Append(ctx, entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestQueryFiltersByLotAndTxnType(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	itemID := uuid.New()
	lotA := uuid.New()
	lotB := uuid.New()

	seed := []models.LedgerEntry{
		{ItemID: itemID, LotID: &lotA, TxnType: enums.TxnTypeReceive, Qty: decimal.NewFromInt(100)},
		{ItemID: itemID, LotID: &lotB, TxnType: enums.TxnTypeReceive, Qty: decimal.NewFromInt(50)},
		{ItemID: itemID, LotID: &lotA, TxnType: enums.TxnTypeIssue, Qty: decimal.NewFromInt(25)},
		{ItemID: itemID, TxnType: enums.TxnTypeReserve, Qty: decimal.NewFromInt(25)},
		{ItemID: uuid.New(), LotID: &lotA, TxnType: enums.TxnTypeReceive, Qty: decimal.NewFromInt(9)},
	}
	for i := range seed {
		require.NoError(t, repo.Append(ctx, &seed[i]))
	}

	all, err := repo.Query(ctx, Filter{ItemID: itemID})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	issue := enums.TxnTypeIssue
	issues, err := repo.Query(ctx, Filter{ItemID: itemID, TxnType: &issue})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Qty.Equal(decimal.NewFromInt(25)))

	byLot, err := repo.Query(ctx, Filter{ItemID: itemID, LotID: &lotA})
	require.NoError(t, err)
	assert.Len(t, byLot, 2)

	count, err := repo.CountByItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestQueryOrdersByTimestampThenID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	itemID := uuid.New()

	qtys := []int64{1, 2, 3}
	for _, q := range qtys {
		require.NoError(t, repo.Append(ctx, &models.LedgerEntry{
			ItemID:  itemID,
			TxnType: enums.TxnTypeReceive,
			Qty:     decimal.NewFromInt(q),
		}))
	}

	entries, err := repo.Query(ctx, Filter{ItemID: itemID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, q := range qtys {
		assert.True(t, entries[i].Qty.Equal(decimal.NewFromInt(q)),
			"entry %d qty = %s, want %d", i, entries[i].Qty, q)
	}
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

// Entries written inside one transaction can land on the same wall-clock
// timestamp. The time-ordered ids must keep the query order equal to the
// append order regardless.
func TestQueryKeepsAppendOrderOnEqualTimestamps(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	itemID := uuid.New()
	shared := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	qtys := []int64{10, 20, 30, 40, 50}
	for _, q := range qtys {
		require.NoError(t, repo.Append(ctx, &models.LedgerEntry{
			ItemID:    itemID,
			TxnType:   enums.TxnTypeReceive,
			Qty:       decimal.NewFromInt(q),
			Timestamp: shared,
		}))
	}

	entries, err := repo.Query(ctx, Filter{ItemID: itemID})
	require.NoError(t, err)
	require.Len(t, entries, len(qtys))
	for i, q := range qtys {
		assert.True(t, entries[i].Qty.Equal(decimal.NewFromInt(q)),
			"entry %d qty = %s, want %d", i, entries[i].Qty, q)
	}
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, -1, bytes.Compare(entries[i-1].ID[:], entries[i].ID[:]),
			"ids must increase in append order")
	}
}
