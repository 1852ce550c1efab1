package reservations

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
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
)

// Service owns the reservation lifecycle: it validates availability and QC
// eligibility, commits the RESERVE ledger entry, and exposes the cancel
// path (OPEN -> CANCELLED plus one UNRESERVE entry).
type Service interface {
	Reserve(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
}

// ServiceParams configure the reservation service.
type ServiceParams struct {
	Tx         pkgdb.TxRunner
	ItemRepo   items.Repository
	LedgerRepo ledger.Repository
	Repo       Repository
	Calculator *stock.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.OperationMetrics
}

type service struct {
	tx      pkgdb.TxRunner
	items   items.Repository
	ledger  ledger.Repository
	repo    Repository
	calc    *stock.Calculator
	logg    *logger.Logger
	metrics *metrics.OperationMetrics
}

// NewService builds the reservation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.ItemRepo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("stock calculator required")
	}
	return &service{
		tx:      params.Tx,
		items:   params.ItemRepo,
		ledger:  params.LedgerRepo,
		repo:    params.Repo,
		calc:    params.Calculator,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Reserve commits a new OPEN reservation for the item. Validation and the
// RESERVE append run inside one serializable transaction; any failure
// aborts with no partial writes.
func (s *service) Reserve(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) (*models.Reservation, error) {
	start := time.Now()
	reservation, err := s.reserve(ctx, itemID, qty)
	s.record("reserve", start, err)
	return reservation, err
}

func (s *service) reserve(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) (*models.Reservation, error) {
	if !qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQty, "qty must be greater than zero").
			WithDetails(map[string]string{"qty": qty.String()})
	}

	var reservation *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		itemRepo := s.items.WithTx(tx)
		repo := s.repo.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)
		calc := s.calc.WithTx(tx)

		if _, err := itemRepo.FindByID(ctx, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found")
			}
			return err
		}

		summary, err := calc.Summary(ctx, itemID)
		if err != nil {
			return err
		}
		if qty.GreaterThan(summary.Available) {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]string{
					"available": summary.Available.String(),
					"requested": qty.String(),
				})
		}

		// Existence check only: the approved remainder does not have to
		// cover qty on its own. Issuance does the exact per-lot accounting.
		eligible, err := calc.EligibleLots(ctx, itemID)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return pkgerrors.New(pkgerrors.CodeNoQCApprovedLot, "no QC-approved lot with remaining stock")
		}

		reservation = &models.Reservation{
			ItemID: itemID,
			Qty:    qty,
			Status: enums.ReservationStatusOpen,
		}
		if err := repo.Create(ctx, reservation); err != nil {
			return err
		}

		return ledgerRepo.Append(ctx, &models.LedgerEntry{
			ItemID:        itemID,
			TxnType:       enums.TxnTypeReserve,
			Qty:           qty,
			ReservationID: &reservation.ID,
		})
	})
	if err != nil {
		return nil, pkgdb.NormalizeError(err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithReservationID(s.logg.WithItemID(ctx, itemID.String()), reservation.ID.String())
		s.logg.Info(logCtx, "reservation opened")
	}
	return reservation, nil
}

// Cancel releases an OPEN reservation: status moves to CANCELLED and one
// UNRESERVE entry restores the reserved quantity to available.
func (s *service) Cancel(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	start := time.Now()
	reservation, err := s.cancel(ctx, reservationID)
	s.record("cancel", start, err)
	return reservation, err
}

func (s *service) cancel(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	var reservation *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)

		found, err := repo.FindByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeReservationNotFound, "reservation not found")
			}
			return err
		}
		if !found.Status.CanTransitionTo(enums.ReservationStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeReservationAlreadyIssued, "reservation is no longer open").
				WithDetails(map[string]string{"status": string(found.Status)})
		}

		if err := repo.UpdateStatus(ctx, found.ID, enums.ReservationStatusCancelled); err != nil {
			return err
		}
		if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
			ItemID:        found.ItemID,
			TxnType:       enums.TxnTypeUnreserve,
			Qty:           found.Qty,
			ReservationID: &found.ID,
		}); err != nil {
			return err
		}

		found.Status = enums.ReservationStatusCancelled
		reservation = found
		return nil
	})
	if err != nil {
		return nil, pkgdb.NormalizeError(err)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithReservationID(ctx, reservation.ID.String()), "reservation cancelled")
	}
	return reservation, nil
}

func (s *service) record(operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation, string(pkgerrors.As(err).Code()))
		return
	}
	s.metrics.IncSuccess(operation)
}
