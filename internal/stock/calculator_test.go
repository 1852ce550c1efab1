package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/lots"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Item{}, &models.InventoryLot{}, &models.LedgerEntry{}, &models.Reservation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, code string) uuid.UUID {
	t.Helper()
	item := models.Item{ID: uuid.New(), Code: code, Name: code}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item.ID
}

func seedLot(t *testing.T, db *gorm.DB, itemID uuid.UUID, lotCode string, qty int64, status enums.QCStatus) uuid.UUID {
	t.Helper()
	lot := models.InventoryLot{
		ID:          uuid.New(),
		ItemID:      itemID,
		LotCode:     lotCode,
		ReceivedQty: decimal.NewFromInt(qty),
		QCStatus:    status,
	}
	if err := db.Create(&lot).Error; err != nil {
		t.Fatalf("seed lot %s: %v", lotCode, err)
	}
	entry := models.LedgerEntry{
		ItemID:  itemID,
		LotID:   &lot.ID,
		TxnType: enums.TxnTypeReceive,
		Qty:     decimal.NewFromInt(qty),
	}
	if err := ledger.NewRepository(db).Append(context.Background(), &entry); err != nil {
		t.Fatalf("seed receive entry: %v", err)
	}
	return lot.ID
}

func newCalculator(db *gorm.DB) *Calculator {
	return NewCalculator(db, ledger.NewRepository(db), lots.NewRepository(db))
}

func TestCalculator_SummaryDerivesFromLedger(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	itemID := seedItem(t, db, "RM-100")
	lotID := seedLot(t, db, itemID, "LOT-A", 100, enums.QCStatusApproved)

	ledgerRepo := ledger.NewRepository(db)
	if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
		ItemID:  itemID,
		LotID:   &lotID,
		TxnType: enums.TxnTypeIssue,
		Qty:     decimal.NewFromInt(25),
	}); err != nil {
		t.Fatalf("append issue: %v", err)
	}
	reservation := models.Reservation{
		ID:     uuid.New(),
		ItemID: itemID,
		Qty:    decimal.NewFromInt(30),
		Status: enums.ReservationStatusOpen,
	}
	if err := db.Create(&reservation).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	closed := models.Reservation{
		ID:     uuid.New(),
		ItemID: itemID,
		Qty:    decimal.NewFromInt(99),
		Status: enums.ReservationStatusCancelled,
	}
	if err := db.Create(&closed).Error; err != nil {
		t.Fatalf("seed cancelled reservation: %v", err)
	}

	summary, err := newCalculator(db).Summary(ctx, itemID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !summary.OnHand.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("on_hand = %s, want 75", summary.OnHand)
	}
	if !summary.Reserved.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("reserved = %s, want 30", summary.Reserved)
	}
	if !summary.Available.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("available = %s, want 45", summary.Available)
	}
}

func TestCalculator_SummaryEmptyItem(t *testing.T) {
	db := newTestDB(t)
	itemID := seedItem(t, db, "RM-101")

	summary, err := newCalculator(db).Summary(context.Background(), itemID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !summary.OnHand.IsZero() || !summary.Reserved.IsZero() || !summary.Available.IsZero() {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestCalculator_EligibleLotsFIFOOrderAndRemaining(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	itemID := seedItem(t, db, "RM-102")

	lotA := seedLot(t, db, itemID, "LOT-A", 30, enums.QCStatusApproved)
	seedLot(t, db, itemID, "LOT-B", 40, enums.QCStatusApproved)
	seedLot(t, db, itemID, "LOT-Q", 50, enums.QCStatusQuarantine)

	// Partially drain LOT-A.
	ledgerRepo := ledger.NewRepository(db)
	if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
		ItemID:  itemID,
		LotID:   &lotA,
		TxnType: enums.TxnTypeIssue,
		Qty:     decimal.NewFromInt(30),
	}); err != nil {
		t.Fatalf("append issue: %v", err)
	}

	eligible, err := newCalculator(db).EligibleLots(ctx, itemID)
	if err != nil {
		t.Fatalf("EligibleLots: %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible lot, got %d", len(eligible))
	}
	if eligible[0].Lot.LotCode != "LOT-B" {
		t.Fatalf("eligible lot = %s, want LOT-B", eligible[0].Lot.LotCode)
	}
	if !eligible[0].Remaining.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("remaining = %s, want 40", eligible[0].Remaining)
	}
}

func TestCalculator_EligibleLotsOrderedByLotCode(t *testing.T) {
	db := newTestDB(t)
	itemID := seedItem(t, db, "RM-103")

	// Insert out of order to prove ordering comes from the query.
	seedLot(t, db, itemID, "LOT-C", 10, enums.QCStatusApproved)
	seedLot(t, db, itemID, "LOT-A", 10, enums.QCStatusApproved)
	seedLot(t, db, itemID, "LOT-B", 10, enums.QCStatusApproved)

	eligible, err := newCalculator(db).EligibleLots(context.Background(), itemID)
	if err != nil {
		t.Fatalf("EligibleLots: %v", err)
	}
	want := []string{"LOT-A", "LOT-B", "LOT-C"}
	if len(eligible) != len(want) {
		t.Fatalf("expected %d lots, got %d", len(want), len(eligible))
	}
	for i, code := range want {
		if eligible[i].Lot.LotCode != code {
			t.Fatalf("lot[%d] = %s, want %s", i, eligible[i].Lot.LotCode, code)
		}
	}
}
