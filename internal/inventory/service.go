package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/items"
	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/lots"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
)

// Service covers the receiving and QC surface plus the derived summary
// read. Receiving registers a lot and appends the matching RECEIVE entry in
// one transaction; QC status changes follow the quarantine state machine.
type Service interface {
	Receive(ctx context.Context, itemID uuid.UUID, lotCode string, qty decimal.Decimal) (*models.InventoryLot, error)
	Summary(ctx context.Context, itemID uuid.UUID) (stock.Summary, error)
	SetQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) (*models.InventoryLot, error)
}

// ServiceParams configure the inventory service.
type ServiceParams struct {
	Tx         pkgdb.TxRunner
	ItemRepo   items.Repository
	LotRepo    lots.Repository
	LedgerRepo ledger.Repository
	Calculator *stock.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.OperationMetrics
}

type service struct {
	tx      pkgdb.TxRunner
	items   items.Repository
	lots    lots.Repository
	ledger  ledger.Repository
	calc    *stock.Calculator
	logg    *logger.Logger
	metrics *metrics.OperationMetrics
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.ItemRepo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.LotRepo == nil {
		return nil, fmt.Errorf("lot repository required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("stock calculator required")
	}
	return &service{
		tx:      params.Tx,
		items:   params.ItemRepo,
		lots:    params.LotRepo,
		ledger:  params.LedgerRepo,
		calc:    params.Calculator,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Receive registers a new lot for the item and appends one RECEIVE entry.
// Lots for QC-required items start in QUARANTINE and are invisible to
// issuance until approved; lots for other items start APPROVED.
func (s *service) Receive(ctx context.Context, itemID uuid.UUID, lotCode string, qty decimal.Decimal) (*models.InventoryLot, error) {
	start := time.Now()
	lot, err := s.receive(ctx, itemID, lotCode, qty)
	s.record("receive", start, err)
	return lot, err
}

func (s *service) receive(ctx context.Context, itemID uuid.UUID, lotCode string, qty decimal.Decimal) (*models.InventoryLot, error) {
	if !qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQty, "qty must be greater than zero").
			WithDetails(map[string]string{"qty": qty.String()})
	}
	if lotCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot_code is required")
	}

	var lot *models.InventoryLot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		itemRepo := s.items.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)

		item, err := itemRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found")
			}
			return err
		}

		status := enums.QCStatusApproved
		if item.QCRequired {
			status = enums.QCStatusQuarantine
		}
		lot = &models.InventoryLot{
			ItemID:      item.ID,
			LotCode:     lotCode,
			ReceivedQty: qty,
			QCStatus:    status,
		}
		if err := lotRepo.Create(ctx, lot); err != nil {
			return err
		}

		return ledgerRepo.Append(ctx, &models.LedgerEntry{
			ItemID:  item.ID,
			LotID:   &lot.ID,
			TxnType: enums.TxnTypeReceive,
			Qty:     qty,
		})
	})
	if err != nil {
		return nil, pkgdb.NormalizeError(err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithLotID(s.logg.WithItemID(ctx, itemID.String()), lot.ID.String())
		s.logg.Info(logCtx, "lot received")
	}
	return lot, nil
}

// Summary derives the item's stock snapshot inside one transaction, so
// on-hand and reserved come from the same read.
func (s *service) Summary(ctx context.Context, itemID uuid.UUID) (stock.Summary, error) {
	start := time.Now()
	summary, err := s.summary(ctx, itemID)
	s.record("summary", start, err)
	return summary, err
}

func (s *service) summary(ctx context.Context, itemID uuid.UUID) (stock.Summary, error) {
	var summary stock.Summary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.items.WithTx(tx).FindByID(ctx, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found")
			}
			return err
		}
		derived, err := s.calc.WithTx(tx).Summary(ctx, itemID)
		if err != nil {
			return err
		}
		summary = derived
		return nil
	})
	if err != nil {
		return stock.Summary{}, pkgdb.NormalizeError(err)
	}
	return summary, nil
}

// SetQCStatus moves a lot through the quarantine state machine. Setting the
// current status again is an idempotent no-op; any transition out of a
// terminal status is rejected.
func (s *service) SetQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) (*models.InventoryLot, error) {
	start := time.Now()
	lot, err := s.setQCStatus(ctx, lotID, status)
	s.record("set_qc_status", start, err)
	return lot, err
}

func (s *service) setQCStatus(ctx context.Context, lotID uuid.UUID, status enums.QCStatus) (*models.InventoryLot, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown qc status").
			WithDetails(map[string]string{"qc_status": string(status)})
	}

	var lot *models.InventoryLot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lotRepo := s.lots.WithTx(tx)

		found, err := lotRepo.FindByID(ctx, lotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeLotNotFound, "lot not found")
			}
			return err
		}
		if found.QCStatus == status {
			lot = found
			return nil
		}
		if !found.QCStatus.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "qc status transition disallowed").
				WithDetails(map[string]string{
					"from": string(found.QCStatus),
					"to":   string(status),
				})
		}

		if err := lotRepo.UpdateQCStatus(ctx, found.ID, status); err != nil {
			return err
		}
		found.QCStatus = status
		lot = found
		return nil
	})
	if err != nil {
		return nil, pkgdb.NormalizeError(err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithField(s.logg.WithLotID(ctx, lot.ID.String()), "qc_status", string(lot.QCStatus))
		s.logg.Info(logCtx, "qc status updated")
	}
	return lot, nil
}

func (s *service) record(operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation, string(pkgerrors.As(err).Code()))
		return
	}
	s.metrics.IncSuccess(operation)
}
