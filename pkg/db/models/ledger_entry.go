package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// LedgerEntry records one immutable inventory fact. The ledger is the sole
// source of truth for quantities; rows are inserted, never updated or
// deleted. LotID is nil for RESERVE/UNRESERVE entries, ReservationID is set
// for RESERVE/UNRESERVE/ISSUE entries. ID is a time-ordered (version 7)
// uuid assigned at append time, so sorting by id resolves timestamp ties in
// append order.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	LotID         *uuid.UUID      `gorm:"column:lot_id;type:uuid;index"`
	TxnType       enums.TxnType   `gorm:"column:txn_type;not null"`
	Qty           decimal.Decimal `gorm:"column:qty;type:numeric;not null"`
	Timestamp     time.Time       `gorm:"column:timestamp;not null"`
	ReservationID *uuid.UUID      `gorm:"column:reservation_id;type:uuid;index"`
}

func (LedgerEntry) TableName() string {
	return "inventory_ledger"
}
