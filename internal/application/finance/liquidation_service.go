package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LiquidationService computes and settles advisor commissions against the
// 20%-of-sale-value collection base. Liquidation is idempotent through the
// per-advisor high-water mark: calling it again without new collections
// settles nothing.
type LiquidationService struct {
	saleRepo        sales.SaleRepository
	liquidationRepo finance.LiquidationRepository
	applicationRepo finance.ApplicationRepository
	logRepo         sales.SaleLogRepository
	locker          shared.SaleLocker
	txManager       shared.TransactionManager
	eventBus        shared.EventPublisher
}

// NewLiquidationService creates a new LiquidationService
func NewLiquidationService(
	saleRepo sales.SaleRepository,
	liquidationRepo finance.LiquidationRepository,
	applicationRepo finance.ApplicationRepository,
	logRepo sales.SaleLogRepository,
	locker shared.SaleLocker,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
) *LiquidationService {
	return &LiquidationService{
		saleRepo:        saleRepo,
		liquidationRepo: liquidationRepo,
		applicationRepo: applicationRepo,
		logRepo:         logRepo,
		locker:          locker,
		txManager:       txManager,
		eventBus:        eventBus,
	}
}

// AdvisorLiquidationView is the per-advisor commission position of a sale
type AdvisorLiquidationView struct {
	AdvisorID        uuid.UUID       `json:"advisor_id"`
	AdvisorName      string          `json:"advisor_name"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	Base20           decimal.Decimal `json:"base_20"`
	Collected        decimal.Decimal `json:"collected"`
	LiquidationPct   decimal.Decimal `json:"liquidation_pct"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	LiquidableAmount decimal.Decimal `json:"liquidable_amount"`
	Liquidated       decimal.Decimal `json:"liquidated"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	Base20Warning    bool            `json:"base_20_warning"`
	AuditFlag        bool            `json:"audit_flag"`
}

// SaleLiquidationView is the commission position of a sale across its
// advisors of record
type SaleLiquidationView struct {
	SaleID     uuid.UUID                `json:"sale_id"`
	SaleNumber string                   `json:"sale_number"`
	SaleStatus sales.SaleStatus         `json:"sale_status"`
	SaleValue  decimal.Decimal          `json:"sale_value"`
	Collected  decimal.Decimal          `json:"collected"`
	Advisors   []AdvisorLiquidationView `json:"advisors"`
}

// LiquidateResult represents the outcome of a liquidation run
type LiquidateResult struct {
	// Entry is nil when there was nothing to liquidate
	Entry    *finance.LiquidationEntry   `json:"entry"`
	Snapshot finance.LiquidationSnapshot `json:"snapshot"`
}

// NothingToLiquidate reports whether the run settled no new commission
func (r *LiquidateResult) NothingToLiquidate() bool {
	return r.Entry == nil
}

// Snapshot computes the current commission position of a sale. Sales that
// are not approved report a zero liquidation ratio; their figures become
// real once the platform approves the sale.
func (s *LiquidationService) Snapshot(ctx context.Context, saleID uuid.UUID) (*SaleLiquidationView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "liquidation", "snapshot")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, saleID.String())

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
	}

	collected, err := s.applicationRepo.SumCollectedBySaleID(ctx, saleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to sum collections: %w", err)
	}

	aggregates, err := s.liquidationRepo.FindBySaleID(ctx, saleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get liquidations: %w", err)
	}
	bySaleAdvisor := make(map[uuid.UUID]*finance.CommissionLiquidation, len(aggregates))
	for i := range aggregates {
		bySaleAdvisor[aggregates[i].AdvisorID] = &aggregates[i]
	}

	view := &SaleLiquidationView{
		SaleID:     sale.ID,
		SaleNumber: sale.SaleNumber,
		SaleStatus: sale.Status,
		SaleValue:  sale.SaleValue,
		Collected:  collected,
		Advisors:   make([]AdvisorLiquidationView, 0, len(sale.Advisors)),
	}

	for _, advisor := range sale.Advisors {
		cl := bySaleAdvisor[advisor.AdvisorID]
		if cl == nil {
			cl, err = finance.NewCommissionLiquidation(sale.ID, advisor.AdvisorID, advisor.AdvisorName, advisor.CommissionRate)
			if err != nil {
				return nil, err
			}
		}
		snap := cl.ComputeSnapshot(sale.SaleValue, collected)
		row := AdvisorLiquidationView{
			AdvisorID:        advisor.AdvisorID,
			AdvisorName:      advisor.AdvisorName,
			CommissionRate:   advisor.CommissionRate,
			Base20:           snap.Base20,
			Collected:        collected,
			LiquidationPct:   snap.LiquidationPct,
			TotalCommission:  snap.TotalCommission,
			LiquidableAmount: snap.LiquidableAmount,
			Liquidated:       cl.AlreadyLiquidated,
			PendingAmount:    snap.PendingAmount,
			Base20Warning:    snap.Base20Warning,
			AuditFlag:        snap.AuditFlag,
		}
		if !sale.IsApproved() {
			row.LiquidationPct = decimal.Zero
			row.LiquidableAmount = decimal.Zero
			row.PendingAmount = decimal.Zero
		}
		view.Advisors = append(view.Advisors, row)
	}

	return view, nil
}

// Liquidate settles the pending commission of an advisor on a sale. The
// run raises the advisor's high-water mark to the currently liquidable
// amount and records an immutable history entry for the difference.
func (s *LiquidationService) Liquidate(ctx context.Context, saleID, advisorID uuid.UUID, actorID *uuid.UUID) (*LiquidateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "liquidation", "liquidate")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, saleID.String(),
		telemetry.SpanAttrAdvisorID, advisorID.String(),
	)

	var result *LiquidateResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationLiquidate, "commission"), func(c context.Context) {
		operationErr = s.locker.WithLock(c, saleID, func(lockCtx context.Context) error {
			return s.txManager.WithinTransaction(lockCtx, func(txCtx context.Context) error {
				sale, err := s.saleRepo.FindByID(txCtx, saleID)
				if err != nil {
					return fmt.Errorf("failed to get sale: %w", err)
				}
				if sale == nil {
					return shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
				}
				if !sale.IsApproved() {
					return shared.ErrSaleNotApproved
				}

				advisor := sale.GetAdvisor(advisorID)
				if advisor == nil {
					return shared.NewDomainError("ADVISOR_NOT_FOUND", "Advisor is not registered on this sale")
				}

				cl, err := s.liquidationRepo.FindBySaleAndAdvisor(txCtx, saleID, advisorID)
				if err != nil {
					return fmt.Errorf("failed to get liquidation: %w", err)
				}
				isNew := cl == nil
				if isNew {
					cl, err = finance.NewCommissionLiquidation(saleID, advisorID, advisor.AdvisorName, advisor.CommissionRate)
					if err != nil {
						return err
					}
				}

				collected, err := s.applicationRepo.SumCollectedBySaleID(txCtx, saleID)
				if err != nil {
					return fmt.Errorf("failed to sum collections: %w", err)
				}

				snapshot := cl.ComputeSnapshot(sale.SaleValue, collected)
				entry, err := cl.Liquidate(snapshot, time.Now().UTC())
				if err != nil {
					return err
				}
				if entry == nil {
					result = &LiquidateResult{Snapshot: snapshot}
					return nil
				}

				if isNew {
					if err := s.liquidationRepo.Save(txCtx, cl); err != nil {
						return fmt.Errorf("failed to save liquidation: %w", err)
					}
				} else {
					if err := s.liquidationRepo.SaveWithLock(txCtx, cl); err != nil {
						return fmt.Errorf("failed to save liquidation: %w", err)
					}
				}
				if err := s.liquidationRepo.AppendEntry(txCtx, entry); err != nil {
					return fmt.Errorf("failed to append liquidation entry: %w", err)
				}

				logEntry, err := sales.NewSaleLog(saleID, sales.LogActionCommissionLiquidated,
					fmt.Sprintf("Commission of %s liquidated for advisor %s (pct %s)",
						entry.AmountLiquidated.StringFixed(2), advisor.AdvisorName, entry.LiquidationPct.String()),
					map[string]any{
						"advisor_id":        advisorID.String(),
						"amount_liquidated": entry.AmountLiquidated.String(),
						"liquidation_pct":   entry.LiquidationPct.String(),
					}, actorID)
				if err != nil {
					return err
				}
				if err := s.logRepo.Append(txCtx, logEntry); err != nil {
					return fmt.Errorf("failed to append sale log: %w", err)
				}

				if err := s.eventBus.Publish(txCtx, cl.GetDomainEvents()...); err != nil {
					return fmt.Errorf("failed to publish events: %w", err)
				}
				cl.ClearDomainEvents()

				result = &LiquidateResult{Entry: entry, Snapshot: snapshot}
				return nil
			})
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
			return
		}
		if result.NothingToLiquidate() {
			telemetry.AddEvent(span, "nothing_to_liquidate")
		} else {
			telemetry.AddEvent(span, "commission_liquidated",
				telemetry.SpanAttrAmount, result.Entry.AmountLiquidated.String(),
			)
		}
	})

	return result, operationErr
}

// History returns the liquidation history of a sale, newest first
func (s *LiquidationService) History(ctx context.Context, saleID uuid.UUID) ([]finance.LiquidationEntry, error) {
	entries, err := s.liquidationRepo.FindEntriesBySaleID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get liquidation history: %w", err)
	}
	return entries, nil
}

// LiquidationQueueRow is one advisor with pending commission on a sale
type LiquidationQueueRow struct {
	SaleID         uuid.UUID       `json:"sale_id"`
	SaleNumber     string          `json:"sale_number"`
	BuyerName      string          `json:"buyer_name"`
	AdvisorID      uuid.UUID       `json:"advisor_id"`
	AdvisorName    string          `json:"advisor_name"`
	LiquidationPct decimal.Decimal `json:"liquidation_pct"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
	AuditFlag      bool            `json:"audit_flag"`
}

// LiquidationQueueResponse is the work queue of pending commissions
type LiquidationQueueResponse struct {
	Rows         []LiquidationQueueRow `json:"rows"`
	TotalPending decimal.Decimal       `json:"total_pending"`
	SaleCount    int                   `json:"sale_count"`
}

// Queue lists every approved sale advisor with commission pending
// liquidation, ordered by pending amount descending.
func (s *LiquidationService) Queue(ctx context.Context) (*LiquidationQueueResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "liquidation", "queue")
	defer span.End()

	salesList, err := s.saleRepo.FindApprovedWithAdvisors(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get approved sales: %w", err)
	}

	response := &LiquidationQueueResponse{
		Rows:         make([]LiquidationQueueRow, 0),
		TotalPending: decimal.Zero,
	}
	salesWithPending := make(map[uuid.UUID]bool)

	for i := range salesList {
		sale := &salesList[i]

		collected, err := s.applicationRepo.SumCollectedBySaleID(ctx, sale.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum collections for sale %s: %w", sale.ID, err)
		}
		if collected.IsZero() {
			continue
		}

		aggregates, err := s.liquidationRepo.FindBySaleID(ctx, sale.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get liquidations for sale %s: %w", sale.ID, err)
		}
		byAdvisor := make(map[uuid.UUID]*finance.CommissionLiquidation, len(aggregates))
		for j := range aggregates {
			byAdvisor[aggregates[j].AdvisorID] = &aggregates[j]
		}

		for _, advisor := range sale.Advisors {
			cl := byAdvisor[advisor.AdvisorID]
			if cl == nil {
				cl, err = finance.NewCommissionLiquidation(sale.ID, advisor.AdvisorID, advisor.AdvisorName, advisor.CommissionRate)
				if err != nil {
					return nil, err
				}
			}
			snap := cl.ComputeSnapshot(sale.SaleValue, collected)
			if !snap.PendingAmount.IsPositive() && !snap.AuditFlag {
				continue
			}

			response.Rows = append(response.Rows, LiquidationQueueRow{
				SaleID:         sale.ID,
				SaleNumber:     sale.SaleNumber,
				BuyerName:      sale.BuyerName,
				AdvisorID:      advisor.AdvisorID,
				AdvisorName:    advisor.AdvisorName,
				LiquidationPct: snap.LiquidationPct,
				PendingAmount:  snap.PendingAmount,
				AuditFlag:      snap.AuditFlag,
			})
			response.TotalPending = response.TotalPending.Add(snap.PendingAmount)
			salesWithPending[sale.ID] = true
		}
	}

	sort.SliceStable(response.Rows, func(i, j int) bool {
		return response.Rows[i].PendingAmount.GreaterThan(response.Rows[j].PendingAmount)
	})
	response.SaleCount = len(salesWithPending)

	telemetry.SetAttributes(span,
		"queue_rows", len(response.Rows),
		"total_pending", response.TotalPending.String(),
	)
	return response, nil
}
