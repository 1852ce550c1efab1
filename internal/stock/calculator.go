package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/lots"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// Summary holds the derived per-item quantities.
type Summary struct {
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

// LotAvailability pairs an APPROVED lot with its remaining (unissued)
// quantity.
type LotAvailability struct {
	Lot       models.InventoryLot
	Remaining decimal.Decimal
}

// Calculator derives stock quantities from the ledger and the lot registry.
// It is stateless and never caches: every call re-derives from the
// transactional read, so there is no staleness inside a transaction.
type Calculator struct {
	db     *gorm.DB
	ledger ledger.Repository
	lots   lots.Repository
}

// NewCalculator wires a calculator over the read sources. The db handle is
// used for the open-reservation sum only.
func NewCalculator(db *gorm.DB, ledgerRepo ledger.Repository, lotRepo lots.Repository) *Calculator {
	return &Calculator{
		db:     db,
		ledger: ledgerRepo,
		lots:   lotRepo,
	}
}

// WithTx returns a calculator whose reads run inside the provided
// transaction, so every aggregate comes from one consistent snapshot.
func (c *Calculator) WithTx(tx *gorm.DB) *Calculator {
	if tx == nil {
		return c
	}
	return &Calculator{
		db:     tx,
		ledger: c.ledger.WithTx(tx),
		lots:   c.lots.WithTx(tx),
	}
}

// Summary derives on-hand, reserved and available for the item:
//
//	on_hand   = sum(RECEIVE.qty) - sum(ISSUE.qty)
//	reserved  = sum(qty of OPEN reservations)
//	available = on_hand - reserved
func (c *Calculator) Summary(ctx context.Context, itemID uuid.UUID) (Summary, error) {
	entries, err := c.ledger.Query(ctx, ledger.Filter{ItemID: itemID})
	if err != nil {
		return Summary{}, err
	}

	onHand := decimal.Zero
	for _, entry := range entries {
		switch entry.TxnType {
		case enums.TxnTypeReceive:
			onHand = onHand.Add(entry.Qty)
		case enums.TxnTypeIssue:
			onHand = onHand.Sub(entry.Qty)
		}
	}

	var open []models.Reservation
	err = c.db.WithContext(ctx).
		Where("item_id = ? AND status = ?", itemID, enums.ReservationStatusOpen).
		Find(&open).Error
	if err != nil {
		return Summary{}, err
	}
	reserved := decimal.Zero
	for _, reservation := range open {
		reserved = reserved.Add(reservation.Qty)
	}

	return Summary{
		OnHand:    onHand,
		Reserved:  reserved,
		Available: onHand.Sub(reserved),
	}, nil
}

// EligibleLots returns the item's APPROVED lots that still have remaining
// quantity, ordered by lot code ascending (the issuance FIFO order). For
// lot L, remaining(L) = received_qty(L) - sum(ISSUE.qty for L).
func (c *Calculator) EligibleLots(ctx context.Context, itemID uuid.UUID) ([]LotAvailability, error) {
	approved, err := c.lots.ListApprovedByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, nil
	}

	issueType := enums.TxnTypeIssue
	issues, err := c.ledger.Query(ctx, ledger.Filter{ItemID: itemID, TxnType: &issueType})
	if err != nil {
		return nil, err
	}
	issuedByLot := make(map[uuid.UUID]decimal.Decimal, len(approved))
	for _, entry := range issues {
		if entry.LotID == nil {
			continue
		}
		issuedByLot[*entry.LotID] = issuedByLot[*entry.LotID].Add(entry.Qty)
	}

	var eligible []LotAvailability
	for _, lot := range approved {
		remaining := lot.ReceivedQty.Sub(issuedByLot[lot.ID])
		if remaining.IsPositive() {
			eligible = append(eligible, LotAvailability{Lot: lot, Remaining: remaining})
		}
	}
	return eligible, nil
}
