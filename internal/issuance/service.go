package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/reservations"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
)

// LotIssuance is one lot's share of an issued reservation.
type LotIssuance struct {
	LotID   uuid.UUID       `json:"lot_id"`
	LotCode string          `json:"lot_code"`
	Qty     decimal.Decimal `json:"qty"`
}

// Result describes a completed issuance: the consumed lots in FIFO order
// and the reservation the stock left under.
type Result struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	Qty           decimal.Decimal `json:"qty"`
	Lots          []LotIssuance   `json:"lots"`
}

// Service fulfils OPEN reservations. Issuance walks APPROVED lots in lot
// code order, consuming each lot's remainder until the reservation is
// covered, and commits the per-lot ISSUE entries, the releasing UNRESERVE
// entry and the ISSUED status flip atomically.
type Service interface {
	Issue(ctx context.Context, reservationID uuid.UUID) (*Result, error)
}

// ServiceParams configure the issuance service.
type ServiceParams struct {
	Tx              pkgdb.TxRunner
	ReservationRepo reservations.Repository
	LedgerRepo      ledger.Repository
	Calculator      *stock.Calculator
	Logger          *logger.Logger
	Metrics         *metrics.OperationMetrics
}

type service struct {
	tx           pkgdb.TxRunner
	reservations reservations.Repository
	ledger       ledger.Repository
	calc         *stock.Calculator
	logg         *logger.Logger
	metrics      *metrics.OperationMetrics
}

// NewService builds the issuance service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.ReservationRepo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("stock calculator required")
	}
	return &service{
		tx:           params.Tx,
		reservations: params.ReservationRepo,
		ledger:       params.LedgerRepo,
		calc:         params.Calculator,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Issue fulfils the reservation. A reservation issues at most once: any
// status other than OPEN is rejected, and the ISSUED flip shares the
// transaction with the ledger appends, so a replayed request observes the
// flip and fails without touching the ledger.
func (s *service) Issue(ctx context.Context, reservationID uuid.UUID) (*Result, error) {
	start := time.Now()
	result, err := s.issue(ctx, reservationID)
	s.record(start, err)
	return result, err
}

func (s *service) issue(ctx context.Context, reservationID uuid.UUID) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservationRepo := s.reservations.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)
		calc := s.calc.WithTx(tx)

		reservation, err := reservationRepo.FindByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeReservationNotFound, "reservation not found")
			}
			return err
		}
		if reservation.Status != enums.ReservationStatusOpen {
			return pkgerrors.New(pkgerrors.CodeReservationAlreadyIssued, "reservation is no longer open").
				WithDetails(map[string]string{"status": string(reservation.Status)})
		}

		eligible, err := calc.EligibleLots(ctx, reservation.ItemID)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return pkgerrors.New(pkgerrors.CodeNoQCApprovedLot, "no QC-approved lot with remaining stock")
		}

		available := decimal.Zero
		for _, candidate := range eligible {
			available = available.Add(candidate.Remaining)
		}
		if reservation.Qty.GreaterThan(available) {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "approved lots cannot cover the reservation").
				WithDetails(map[string]string{
					"available": available.String(),
					"requested": reservation.Qty.String(),
				})
		}

		outstanding := reservation.Qty
		var consumed []LotIssuance
		for _, candidate := range eligible {
			if !outstanding.IsPositive() {
				break
			}
			take := decimal.Min(candidate.Remaining, outstanding)
			lotID := candidate.Lot.ID
			if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
				ItemID:        reservation.ItemID,
				LotID:         &lotID,
				TxnType:       enums.TxnTypeIssue,
				Qty:           take,
				ReservationID: &reservation.ID,
			}); err != nil {
				return err
			}
			consumed = append(consumed, LotIssuance{
				LotID:   lotID,
				LotCode: candidate.Lot.LotCode,
				Qty:     take,
			})
			outstanding = outstanding.Sub(take)
		}

		if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
			ItemID:        reservation.ItemID,
			TxnType:       enums.TxnTypeUnreserve,
			Qty:           reservation.Qty,
			ReservationID: &reservation.ID,
		}); err != nil {
			return err
		}
		if err := reservationRepo.UpdateStatus(ctx, reservation.ID, enums.ReservationStatusIssued); err != nil {
			return err
		}

		result = &Result{
			ReservationID: reservation.ID,
			ItemID:        reservation.ItemID,
			Qty:           reservation.Qty,
			Lots:          consumed,
		}
		return nil
	})
	if err != nil {
		return nil, pkgdb.NormalizeError(err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithReservationID(s.logg.WithItemID(ctx, result.ItemID.String()), result.ReservationID.String())
		s.logg.Info(s.logg.WithField(logCtx, "lots", len(result.Lots)), "reservation issued")
	}
	return result, nil
}

func (s *service) record(start time.Time, err error) {
	s.metrics.ObserveDuration("issue", time.Since(start))
	if err != nil {
		s.metrics.IncFailure("issue", string(pkgerrors.As(err).Code()))
		return
	}
	s.metrics.IncSuccess("issue")
}
