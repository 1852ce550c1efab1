package reservations

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/internal/items"
	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/lots"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

// newClientHarness wires the service against a real pkg/db client so that
// Reserve runs through WithTx and its serializable transaction options, not
// the plain test runner.
func newClientHarness(t *testing.T) (*pkgdb.Client, Service) {
	t.Helper()
	client, err := pkgdb.New(context.Background(), config.DBConfig{
		Driver:       config.DBDriverSQLite,
		Path:         filepath.Join(t.TempDir(), "reservations.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}, nil)
	if err != nil {
		t.Fatalf("open db client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	db := client.DB()
	if err := db.AutoMigrate(&models.Item{}, &models.InventoryLot{}, &models.LedgerEntry{}, &models.Reservation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledgerRepo := ledger.NewRepository(db)
	lotRepo := lots.NewRepository(db)
	svc, err := NewService(ServiceParams{
		Tx:         client,
		ItemRepo:   items.NewRepository(db),
		LedgerRepo: ledgerRepo,
		Repo:       NewRepository(db),
		Calculator: stock.NewCalculator(db, ledgerRepo, lotRepo),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return client, svc
}

func openReservedTotal(t *testing.T, client *pkgdb.Client, itemID uuid.UUID) decimal.Decimal {
	t.Helper()
	var open []models.Reservation
	err := client.DB().
		Where("item_id = ? AND status = ?", itemID, enums.ReservationStatusOpen).
		Find(&open).Error
	if err != nil {
		t.Fatalf("list open reservations: %v", err)
	}
	total := decimal.Zero
	for _, r := range open {
		total = total.Add(r.Qty)
	}
	return total
}

// Two callers race for stock that covers only one of them. Whatever the
// interleaving, at most one reservation may commit: the loser sees either
// the retryable conflict or an insufficient-stock rejection, never an
// over-reservation.
func TestService_ReserveConcurrentCallersNeverOverReserve(t *testing.T) {
	client, svc := newClientHarness(t)
	ctx := context.Background()

	itemID := uuid.New()
	if err := client.DB().Create(&models.Item{ID: itemID, Code: "RM-310", Name: "RM-310"}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	lotID := uuid.New()
	if err := client.DB().Create(&models.InventoryLot{
		ID:          lotID,
		ItemID:      itemID,
		LotCode:     "LOT-A",
		ReceivedQty: decimal.NewFromInt(100),
		QCStatus:    enums.QCStatusApproved,
	}).Error; err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	if err := ledger.NewRepository(client.DB()).Append(ctx, &models.LedgerEntry{
		ItemID:  itemID,
		LotID:   &lotID,
		TxnType: enums.TxnTypeReceive,
		Qty:     decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("seed receive entry: %v", err)
	}

	const callers = 2
	start := make(chan struct{})
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			<-start
			_, errs[slot] = svc.Reserve(ctx, itemID, decimal.NewFromInt(60))
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil {
			t.Fatalf("losing caller returned untyped error: %v", err)
		}
		switch typed.Code() {
		case pkgerrors.CodeTxConflict, pkgerrors.CodeInsufficientStock:
		default:
			t.Fatalf("losing caller code = %s, want TX_CONFLICT or INSUFFICIENT_STOCK (err: %v)", typed.Code(), err)
		}
	}
	if successes > 1 {
		t.Fatalf("%d reservations of 60 committed against 100 available", successes)
	}

	if total := openReservedTotal(t, client, itemID); total.GreaterThan(decimal.NewFromInt(100)) {
		t.Fatalf("open reservations total %s exceeds the 100 on hand", total)
	}
}

// Many callers retry on conflict; the committed reservations must still fit
// inside what was received, and every committed reservation has exactly one
// RESERVE entry behind it.
func TestService_ReserveUnderContentionMatchesLedger(t *testing.T) {
	client, svc := newClientHarness(t)
	ctx := context.Background()

	itemID := uuid.New()
	if err := client.DB().Create(&models.Item{ID: itemID, Code: "RM-311", Name: "RM-311"}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	lotID := uuid.New()
	if err := client.DB().Create(&models.InventoryLot{
		ID:          lotID,
		ItemID:      itemID,
		LotCode:     "LOT-A",
		ReceivedQty: decimal.NewFromInt(100),
		QCStatus:    enums.QCStatusApproved,
	}).Error; err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	if err := ledger.NewRepository(client.DB()).Append(ctx, &models.LedgerEntry{
		ItemID:  itemID,
		LotID:   &lotID,
		TxnType: enums.TxnTypeReceive,
		Qty:     decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("seed receive entry: %v", err)
	}

	const (
		callers  = 8
		attempts = 5
	)
	start := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for attempt := 0; attempt < attempts; attempt++ {
				_, err := svc.Reserve(ctx, itemID, decimal.NewFromInt(30))
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				typed := pkgerrors.As(err)
				if typed != nil && typed.Code() == pkgerrors.CodeTxConflict {
					continue
				}
				if typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
					return
				}
				t.Errorf("unexpected reserve error: %v", err)
				return
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes > 3 {
		t.Fatalf("%d reservations of 30 committed against 100 available", successes)
	}
	total := openReservedTotal(t, client, itemID)
	if total.GreaterThan(decimal.NewFromInt(100)) {
		t.Fatalf("open reservations total %s exceeds the 100 on hand", total)
	}
	if want := decimal.NewFromInt(int64(successes) * 30); !total.Equal(want) {
		t.Fatalf("open reservations total %s, want %s for %d commits", total, want, successes)
	}

	reserveType := enums.TxnTypeReserve
	entries, err := ledger.NewRepository(client.DB()).Query(ctx, ledger.Filter{ItemID: itemID, TxnType: &reserveType})
	if err != nil {
		t.Fatalf("query ledger: %v", err)
	}
	if len(entries) != successes {
		t.Fatalf("RESERVE entries = %d, want one per committed reservation (%d)", len(entries), successes)
	}
}
