package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAllocationService applies receipts to installment schedules. Every
// mutating operation runs under the per-sale lock and inside a single
// database transaction, so concurrent settlements of the same sale
// serialize and each allocation is all-or-nothing.
type PaymentAllocationService struct {
	allocator       *finance.AllocationService
	receiptRepo     finance.ReceiptRepository
	applicationRepo finance.ApplicationRepository
	installmentRepo sales.InstallmentRepository
	saleRepo        sales.SaleRepository
	logRepo         sales.SaleLogRepository
	locker          shared.SaleLocker
	txManager       shared.TransactionManager
	eventBus        shared.EventPublisher
}

// NewPaymentAllocationService creates a new PaymentAllocationService
func NewPaymentAllocationService(
	receiptRepo finance.ReceiptRepository,
	applicationRepo finance.ApplicationRepository,
	installmentRepo sales.InstallmentRepository,
	saleRepo sales.SaleRepository,
	logRepo sales.SaleLogRepository,
	locker shared.SaleLocker,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
) *PaymentAllocationService {
	return &PaymentAllocationService{
		allocator:       finance.NewAllocationService(),
		receiptRepo:     receiptRepo,
		applicationRepo: applicationRepo,
		installmentRepo: installmentRepo,
		saleRepo:        saleRepo,
		logRepo:         logRepo,
		locker:          locker,
		txManager:       txManager,
		eventBus:        eventBus,
	}
}

// AllocationResponse represents the outcome of allocating a receipt
type AllocationResponse struct {
	ReceiptID      uuid.UUID                     `json:"receipt_id"`
	SaleID         uuid.UUID                     `json:"sale_id"`
	Applications   []*finance.PaymentApplication `json:"applications"`
	AppliedAmount  decimal.Decimal               `json:"applied_amount"`
	ResidualCredit decimal.Decimal               `json:"residual_credit"`
}

// Allocate applies a pending receipt to the sale's outstanding schedule
// using the mora, interest, principal waterfall. A receipt allocates at
// most once; anything left after the schedule is exhausted stays on the
// receipt as standing credit.
func (s *PaymentAllocationService) Allocate(ctx context.Context, receiptID uuid.UUID, actorID *uuid.UUID) (*AllocationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "allocate")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrReceiptID, receiptID.String())

	// Resolve the sale outside the lock; the receipt is re-read inside
	// the transaction for a consistent view.
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return nil, shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
	}
	saleID := receipt.SaleID
	telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, saleID.String())

	var response *AllocationResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationAllocate, "waterfall"), func(c context.Context) {
		operationErr = s.locker.WithLock(c, saleID, func(lockCtx context.Context) error {
			return s.txManager.WithinTransaction(lockCtx, func(txCtx context.Context) error {
				receipt, err := s.receiptRepo.FindByID(txCtx, receiptID)
				if err != nil {
					return fmt.Errorf("failed to get receipt: %w", err)
				}
				if receipt == nil {
					return shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
				}

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

				installments, err := s.installmentRepo.FindOutstandingBySaleID(txCtx, saleID)
				if err != nil {
					return fmt.Errorf("failed to get schedule: %w", err)
				}

				now := time.Now().UTC()
				result, err := s.allocator.Allocate(receipt, installments, now)
				if err != nil {
					return err
				}

				if err := s.installmentRepo.SaveAll(txCtx, touchedInstallments(installments, result.Applications)); err != nil {
					return fmt.Errorf("failed to save installments: %w", err)
				}
				if len(result.Applications) > 0 {
					if err := s.applicationRepo.SaveAll(txCtx, result.Applications); err != nil {
						return fmt.Errorf("failed to save applications: %w", err)
					}
				}
				if err := s.receiptRepo.SaveWithLock(txCtx, receipt); err != nil {
					return fmt.Errorf("failed to save receipt: %w", err)
				}

				entry, err := sales.NewSaleLog(saleID, sales.LogActionPaymentAllocated,
					fmt.Sprintf("Receipt %s allocated: %s applied across %d applications, %s residual",
						receipt.ID, result.AppliedAmount.StringFixed(2), len(result.Applications), result.ResidualCredit.StringFixed(2)),
					map[string]any{
						"receipt_id":      receipt.ID.String(),
						"applied_amount":  result.AppliedAmount.String(),
						"residual_credit": result.ResidualCredit.String(),
						"applications":    len(result.Applications),
					}, actorID)
				if err != nil {
					return err
				}
				if err := s.logRepo.Append(txCtx, entry); err != nil {
					return fmt.Errorf("failed to append sale log: %w", err)
				}

				if err := s.eventBus.Publish(txCtx, receipt.GetDomainEvents()...); err != nil {
					return fmt.Errorf("failed to publish events: %w", err)
				}
				receipt.ClearDomainEvents()

				response = &AllocationResponse{
					ReceiptID:      receipt.ID,
					SaleID:         saleID,
					Applications:   result.Applications,
					AppliedAmount:  result.AppliedAmount,
					ResidualCredit: result.ResidualCredit,
				}
				return nil
			})
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
			return
		}
		telemetry.AddEvent(span, "receipt_allocated",
			telemetry.SpanAttrAmount, response.AppliedAmount.String(),
			"residual_credit", response.ResidualCredit.String(),
		)
	})

	return response, operationErr
}

// ApplyCredit drains the standing credit of a sale's receipts into its
// current outstanding schedule, oldest credit first. Typically called after
// a schedule change or mora assessment created new outstanding amounts.
func (s *PaymentAllocationService) ApplyCredit(ctx context.Context, saleID uuid.UUID, actorID *uuid.UUID) (*AllocationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "apply_credit")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, saleID.String())

	var response *AllocationResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationApplyCredit, "waterfall"), func(c context.Context) {
		operationErr = s.locker.WithLock(c, saleID, func(lockCtx context.Context) error {
			return s.txManager.WithinTransaction(lockCtx, func(txCtx context.Context) error {
				receipts, err := s.receiptRepo.FindWithSurplusBySaleID(txCtx, saleID)
				if err != nil {
					return fmt.Errorf("failed to get receipts with credit: %w", err)
				}

				installments, err := s.installmentRepo.FindOutstandingBySaleID(txCtx, saleID)
				if err != nil {
					return fmt.Errorf("failed to get schedule: %w", err)
				}

				now := time.Now().UTC()
				applied := decimal.Zero
				remainingCredit := decimal.Zero
				applications := make([]*finance.PaymentApplication, 0)
				events := make([]shared.DomainEvent, 0)

				for _, receipt := range receipts {
					result, err := s.allocator.ApplyCredit(receipt, installments, now)
					if err != nil {
						return err
					}
					if result.AppliedAmount.IsZero() {
						remainingCredit = remainingCredit.Add(receipt.Surplus)
						continue
					}
					applied = applied.Add(result.AppliedAmount)
					remainingCredit = remainingCredit.Add(receipt.Surplus)
					applications = append(applications, result.Applications...)
					if err := s.receiptRepo.SaveWithLock(txCtx, receipt); err != nil {
						return fmt.Errorf("failed to save receipt: %w", err)
					}
					events = append(events, receipt.GetDomainEvents()...)
					receipt.ClearDomainEvents()
				}

				if len(applications) > 0 {
					if err := s.installmentRepo.SaveAll(txCtx, touchedInstallments(installments, applications)); err != nil {
						return fmt.Errorf("failed to save installments: %w", err)
					}
					if err := s.applicationRepo.SaveAll(txCtx, applications); err != nil {
						return fmt.Errorf("failed to save applications: %w", err)
					}

					entry, err := sales.NewSaleLog(saleID, sales.LogActionCreditApplied,
						fmt.Sprintf("Standing credit of %s applied across %d applications",
							applied.StringFixed(2), len(applications)),
						map[string]any{
							"applied_amount": applied.String(),
							"applications":   len(applications),
						}, actorID)
					if err != nil {
						return err
					}
					if err := s.logRepo.Append(txCtx, entry); err != nil {
						return fmt.Errorf("failed to append sale log: %w", err)
					}
				}

				if err := s.eventBus.Publish(txCtx, events...); err != nil {
					return fmt.Errorf("failed to publish events: %w", err)
				}

				response = &AllocationResponse{
					SaleID:         saleID,
					Applications:   applications,
					AppliedAmount:  applied,
					ResidualCredit: remainingCredit,
				}
				return nil
			})
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})

	return response, operationErr
}

// Simulate previews how an amount would land on the sale's outstanding
// schedule without persisting anything.
func (s *PaymentAllocationService) Simulate(ctx context.Context, saleID uuid.UUID, amount decimal.Decimal, asOf time.Time) (*finance.AllocationSimulation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "simulate")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, saleID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	installments, err := s.installmentRepo.FindOutstandingBySaleID(ctx, saleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	sim, err := s.allocator.Simulate(amount, installments, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return sim, nil
}

// ListApplications returns the application rows created from a receipt
func (s *PaymentAllocationService) ListApplications(ctx context.Context, receiptID uuid.UUID) ([]finance.PaymentApplication, error) {
	applications, err := s.applicationRepo.FindByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get applications: %w", err)
	}
	return applications, nil
}

// touchedInstallments filters the schedule down to installments that
// received at least one application, so only mutated rows are written back.
func touchedInstallments(installments []*sales.Installment, applications []*finance.PaymentApplication) []*sales.Installment {
	touched := make(map[uuid.UUID]bool, len(applications))
	for _, app := range applications {
		touched[app.InstallmentID] = true
	}
	out := make([]*sales.Installment, 0, len(touched))
	for _, inst := range installments {
		if touched[inst.ID] {
			out = append(out, inst)
		}
	}
	return out
}
