package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// Reservation is a commitment to issue a quantity in the future. It reduces
// available stock immediately and transitions OPEN -> ISSUED (or CANCELLED)
// exactly once.
type Reservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ItemID    uuid.UUID               `gorm:"column:item_id;type:uuid;not null;index:idx_reservations_item_status"`
	Qty       decimal.Decimal         `gorm:"column:qty;type:numeric;not null"`
	Status    enums.ReservationStatus `gorm:"column:status;not null;index:idx_reservations_item_status"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (Reservation) TableName() string {
	return "reservations"
}
