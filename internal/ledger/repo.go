package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// Filter narrows a ledger query. ItemID is required; LotID and TxnType are
// optional refinements.
type Filter struct {
	ItemID  uuid.UUID
	LotID   *uuid.UUID
	TxnType *enums.TxnType
}

// Repository is the append-only ledger store. There is deliberately no
// update or delete surface: entries are immutable facts and the sole source
// of truth for all quantity math.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.LedgerEntry) error
	Query(ctx context.Context, filter Filter) ([]models.LedgerEntry, error)
	CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		// Version 7 ids carry the creation time and increase monotonically
		// within the process, so "id ASC" breaks timestamp ties in append
		// order. Random v4 ids would shuffle entries written in the same
		// instant.
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating ledger entry id: %w", err)
		}
		entry.ID = id
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Query(ctx context.Context, filter Filter) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("item_id = ?", filter.ItemID).
		Order("timestamp ASC, id ASC")
	if filter.LotID != nil {
		query = query.Where("lot_id = ?", *filter.LotID)
	}
	if filter.TxnType != nil {
		query = query.Where("txn_type = ?", *filter.TxnType)
	}

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count, err
}
