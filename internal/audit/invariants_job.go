package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/items"
	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/lots"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
)

// InvariantsJob re-derives every item's quantities from the ledger and
// reports items whose numbers break the stock invariants: negative on-hand,
// reservations exceeding on-hand, ledger/reservation drift, over-issued
// lots, and issues out of unapproved lots. The engine's transactional
// checks should make all of these unreachable; the audit exists to catch
// operator writes and bugs after the fact.
type InvariantsJob struct {
	tx      pkgdb.TxRunner
	items   items.Repository
	lots    lots.Repository
	ledger  ledger.Repository
	calc    *stock.Calculator
	logg    *logger.Logger
	metrics *metrics.AuditMetrics
}

// InvariantsJobParams configure the invariants job.
type InvariantsJobParams struct {
	Tx         pkgdb.TxRunner
	ItemRepo   items.Repository
	LotRepo    lots.Repository
	LedgerRepo ledger.Repository
	Calculator *stock.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.AuditMetrics
}

// NewInvariantsJob builds the invariants job.
func NewInvariantsJob(params InvariantsJobParams) (*InvariantsJob, error) {
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
	return &InvariantsJob{
		tx:      params.Tx,
		items:   params.ItemRepo,
		lots:    params.LotRepo,
		ledger:  params.LedgerRepo,
		calc:    params.Calculator,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Name implements Job.
func (j *InvariantsJob) Name() string {
	return "stock-invariants"
}

// Run audits every item. The returned error aggregates all violations
// found; a nil return means a clean pass.
func (j *InvariantsJob) Run(ctx context.Context) error {
	list, err := j.items.List(ctx)
	if err != nil {
		j.metrics.IncRun("error")
		return fmt.Errorf("list items: %w", err)
	}

	var violations error
	violated := 0
	for _, item := range list {
		itemErr := j.auditItem(ctx, item.ID)
		if itemErr != nil {
			violated++
			violations = multierr.Append(violations, fmt.Errorf("item %s (%s): %w", item.Code, item.ID, itemErr))
		}
	}

	j.metrics.SetViolations(violated)
	if violations != nil {
		j.metrics.IncRun("violations")
		return violations
	}
	j.metrics.IncRun("clean")
	return nil
}

// auditItem runs all per-item checks inside one transaction, so every
// aggregate comes from the same snapshot.
func (j *InvariantsJob) auditItem(ctx context.Context, itemID uuid.UUID) error {
	var violations error
	err := j.tx.WithTx(ctx, func(tx *gorm.DB) error {
		calc := j.calc.WithTx(tx)
		ledgerRepo := j.ledger.WithTx(tx)
		lotRepo := j.lots.WithTx(tx)

		summary, err := calc.Summary(ctx, itemID)
		if err != nil {
			return err
		}
		if summary.OnHand.IsNegative() {
			violations = multierr.Append(violations, fmt.Errorf("on_hand is negative: %s", summary.OnHand))
		}
		if summary.Available.IsNegative() {
			violations = multierr.Append(violations, fmt.Errorf("reserved %s exceeds on_hand %s", summary.Reserved, summary.OnHand))
		}

		entries, err := ledgerRepo.Query(ctx, ledger.Filter{ItemID: itemID})
		if err != nil {
			return err
		}
		ledgerReserved := decimal.Zero
		issuedByLot := map[uuid.UUID]decimal.Decimal{}
		for _, entry := range entries {
			switch entry.TxnType {
			case enums.TxnTypeReserve:
				ledgerReserved = ledgerReserved.Add(entry.Qty)
			case enums.TxnTypeUnreserve:
				ledgerReserved = ledgerReserved.Sub(entry.Qty)
			case enums.TxnTypeIssue:
				if entry.LotID == nil {
					violations = multierr.Append(violations, fmt.Errorf("issue entry %s has no lot", entry.ID))
					continue
				}
				issuedByLot[*entry.LotID] = issuedByLot[*entry.LotID].Add(entry.Qty)
			}
		}
		if !ledgerReserved.Equal(summary.Reserved) {
			violations = multierr.Append(violations,
				fmt.Errorf("ledger reserve balance %s disagrees with open reservations %s", ledgerReserved, summary.Reserved))
		}

		itemLots, err := lotRepo.ListByItem(ctx, itemID)
		if err != nil {
			return err
		}
		for _, lot := range itemLots {
			issued := issuedByLot[lot.ID]
			if issued.GreaterThan(lot.ReceivedQty) {
				violations = multierr.Append(violations,
					fmt.Errorf("lot %s over-issued: %s of %s", lot.LotCode, issued, lot.ReceivedQty))
			}
			if lot.QCStatus != enums.QCStatusApproved && issued.IsPositive() {
				violations = multierr.Append(violations,
					fmt.Errorf("lot %s issued while %s", lot.LotCode, lot.QCStatus))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if violations != nil && j.logg != nil {
		j.logg.Error(j.logg.WithItemID(ctx, itemID.String()), "stock invariants violated", violations)
	}
	return violations
}
