package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// InventoryLot is one received batch. ReceivedQty is the declared amount at
// receipt, not a live balance; QCStatus is the only mutable field.
type InventoryLot struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID      uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	LotCode     string          `gorm:"column:lot_code;uniqueIndex;not null"`
	ReceivedQty decimal.Decimal `gorm:"column:received_qty;type:numeric;not null"`
	QCStatus    enums.QCStatus  `gorm:"column:qc_status;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryLot) TableName() string {
	return "inventory_lots"
}
