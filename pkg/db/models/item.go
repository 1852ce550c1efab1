package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a material definition. Immutable after creation; stock levels are
// never stored here, they are derived from the ledger.
type Item struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code       string    `gorm:"column:code;uniqueIndex;not null"`
	Name       string    `gorm:"column:name;not null"`
	QCRequired bool      `gorm:"column:qc_required;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Item) TableName() string {
	return "items"
}
