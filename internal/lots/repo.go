package lots

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

// Repository is the lot registry: mutable QC metadata about each received
// batch. Received quantity is fixed at creation; QC status is the only
// field with an update path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lot *models.InventoryLot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryLot, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.InventoryLot, error)
	ListApprovedByItem(ctx context.Context, itemID uuid.UUID) ([]models.InventoryLot, error)
	UpdateQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lot registry bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the lot. The unique constraint on lot_code closes the race
// between concurrent receives of the same code; the violation surfaces as
// DUPLICATE_LOT_CODE from the same transaction that attempted the insert.
func (r *repository) Create(ctx context.Context, lot *models.InventoryLot) error {
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(lot).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "lot_code") {
			return pkgerrors.Wrap(pkgerrors.CodeDuplicateLotCode, err, "lot code already exists").
				WithDetails(map[string]string{"lot_code": lot.LotCode})
		}
		return err
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryLot, error) {
	var lot models.InventoryLot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("lot_code ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// ListApprovedByItem returns the item's APPROVED lots ordered by lot code
// ascending. That lexicographic order is the issuance FIFO order.
func (r *repository) ListApprovedByItem(ctx context.Context, itemID uuid.UUID) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND qc_status = ?", itemID, enums.QCStatusApproved).
		Order("lot_code ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repository) UpdateQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryLot{}).
		Where("id = ?", lotID).
		Update("qc_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
