package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleService owns the payment plan of a sale and the installment
// schedule generated from it, and runs the daily mora assessment.
type ScheduleService struct {
	saleRepo        sales.SaleRepository
	planRepo        sales.PaymentPlanRepository
	installmentRepo sales.InstallmentRepository
	logRepo         sales.SaleLogRepository
	locker          shared.SaleLocker
	txManager       shared.TransactionManager
	eventBus        shared.EventPublisher
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	saleRepo sales.SaleRepository,
	planRepo sales.PaymentPlanRepository,
	installmentRepo sales.InstallmentRepository,
	logRepo sales.SaleLogRepository,
	locker shared.SaleLocker,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
) *ScheduleService {
	return &ScheduleService{
		saleRepo:        saleRepo,
		planRepo:        planRepo,
		installmentRepo: installmentRepo,
		logRepo:         logRepo,
		locker:          locker,
		txManager:       txManager,
		eventBus:        eventBus,
	}
}

// GeneratePlanRequest represents the financing parameters of a sale
type GeneratePlanRequest struct {
	SaleID               uuid.UUID
	InitialAmount        decimal.Decimal
	InitialInstallments  int
	InitialPeriodicity   sales.Periodicity
	FinancedInstallments int
	MonthlyRate          decimal.Decimal
	Amortization         sales.AmortizationSystem
	MoraRateMonthly      decimal.Decimal
	GraceDays            int
	StartDate            time.Time
	ActorID              *uuid.UUID
}

// GeneratePlanResult represents a generated schedule
type GeneratePlanResult struct {
	Plan         *sales.PaymentPlan   `json:"plan"`
	Installments []*sales.Installment `json:"installments"`
}

// GeneratePlan creates (or regenerates) the payment plan of a sale and
// materializes its installment schedule. Regeneration replaces the whole
// schedule and is only allowed while no installment has received a
// payment.
func (s *ScheduleService) GeneratePlan(ctx context.Context, req GeneratePlanRequest) (*GeneratePlanResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "generate_plan")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, req.SaleID.String())

	var result *GeneratePlanResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationGeneratePlan, string(req.Amortization)), func(c context.Context) {
		operationErr = s.locker.WithLock(c, req.SaleID, func(lockCtx context.Context) error {
			sale, err := s.saleRepo.FindByID(lockCtx, req.SaleID)
			if err != nil {
				return fmt.Errorf("failed to get sale: %w", err)
			}
			if sale == nil {
				return shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
			}

			anyPaid, err := s.installmentRepo.AnyPaidBySaleID(lockCtx, req.SaleID)
			if err != nil {
				return fmt.Errorf("failed to check schedule payments: %w", err)
			}
			if anyPaid {
				return shared.NewDomainError("SCHEDULE_LOCKED",
					fmt.Sprintf("Sale %s already has payments on its schedule, the plan cannot be regenerated", sale.SaleNumber))
			}

			plan, err := sales.NewPaymentPlan(
				req.SaleID,
				sale.SaleValue,
				req.InitialAmount,
				req.InitialInstallments,
				req.InitialPeriodicity,
				req.FinancedInstallments,
				req.MonthlyRate,
				req.Amortization,
				req.MoraRateMonthly,
				req.GraceDays,
				req.StartDate,
			)
			if err != nil {
				return err
			}

			installments, err := plan.GenerateSchedule()
			if err != nil {
				return err
			}

			err = s.txManager.WithinTransaction(lockCtx, func(txCtx context.Context) error {
				if err := s.installmentRepo.DeleteBySaleID(txCtx, req.SaleID); err != nil {
					return fmt.Errorf("failed to clear schedule: %w", err)
				}
				if err := s.planRepo.DeleteBySaleID(txCtx, req.SaleID); err != nil {
					return fmt.Errorf("failed to clear plan: %w", err)
				}
				if err := s.planRepo.Save(txCtx, plan); err != nil {
					return fmt.Errorf("failed to save plan: %w", err)
				}
				if err := s.installmentRepo.SaveAll(txCtx, installments); err != nil {
					return fmt.Errorf("failed to save schedule: %w", err)
				}

				entry, err := sales.NewSaleLog(req.SaleID, sales.LogActionScheduleGenerated,
					fmt.Sprintf("Schedule of %d installments generated (%s, rate %s)",
						len(installments), plan.Amortization, plan.MonthlyRate.String()),
					map[string]any{
						"amortization": string(plan.Amortization),
						"installments": len(installments),
						"monthly_rate": plan.MonthlyRate.String(),
					}, req.ActorID)
				if err != nil {
					return err
				}
				return s.logRepo.Append(txCtx, entry)
			})
			if err != nil {
				return err
			}

			if err := s.eventBus.Publish(lockCtx, sales.NewScheduleGeneratedEvent(plan, len(installments))); err != nil {
				telemetry.RecordError(span, err)
			}

			result = &GeneratePlanResult{Plan: plan, Installments: installments}
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
			return
		}
		telemetry.AddEvent(span, "schedule_generated",
			"installments", len(result.Installments),
		)
	})

	return result, operationErr
}

// GetPlan returns the payment plan of a sale
func (s *ScheduleService) GetPlan(ctx context.Context, saleID uuid.UUID) (*sales.PaymentPlan, error) {
	plan, err := s.planRepo.FindBySaleID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, shared.NewDomainError("PLAN_NOT_FOUND", "Sale has no payment plan")
	}
	return plan, nil
}

// GetSchedule returns the installment schedule of a sale, optionally
// restricted to installments that still carry a balance.
func (s *ScheduleService) GetSchedule(ctx context.Context, saleID uuid.UUID, outstandingOnly bool) ([]*sales.Installment, error) {
	var installments []*sales.Installment
	var err error
	if outstandingOnly {
		installments, err = s.installmentRepo.FindOutstandingBySaleID(ctx, saleID)
	} else {
		installments, err = s.installmentRepo.FindBySaleID(ctx, saleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return installments, nil
}

// MoraAssessmentResult represents the outcome of a mora assessment run
type MoraAssessmentResult struct {
	SaleID        uuid.UUID       `json:"sale_id"`
	AsOf          time.Time       `json:"as_of"`
	RaisedCount   int             `json:"raised_count"`
	TotalAssessed decimal.Decimal `json:"total_assessed"`
}

// AssessMora recomputes late-payment charges for every outstanding
// installment of the sale as of the given date. Charges only ever rise;
// an installment whose assessed mora is below what it already carries is
// left alone.
func (s *ScheduleService) AssessMora(ctx context.Context, saleID uuid.UUID, asOf time.Time, actorID *uuid.UUID) (*MoraAssessmentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "assess_mora")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, saleID.String())

	var result *MoraAssessmentResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationAssessMora, "daily"), func(c context.Context) {
		operationErr = s.locker.WithLock(c, saleID, func(lockCtx context.Context) error {
			plan, err := s.planRepo.FindBySaleID(lockCtx, saleID)
			if err != nil {
				return fmt.Errorf("failed to get plan: %w", err)
			}
			if plan == nil {
				return shared.NewDomainError("PLAN_NOT_FOUND", "Sale has no payment plan")
			}

			installments, err := s.installmentRepo.FindOutstandingBySaleID(lockCtx, saleID)
			if err != nil {
				return fmt.Errorf("failed to get schedule: %w", err)
			}

			raised := make([]*sales.Installment, 0)
			totalAssessed := decimal.Zero
			for _, inst := range installments {
				assessed, changed := inst.AssessMora(plan.MoraRateMonthly, plan.GraceDays, asOf)
				if changed {
					raised = append(raised, inst)
					totalAssessed = totalAssessed.Add(assessed)
				}
			}

			if len(raised) > 0 {
				err = s.txManager.WithinTransaction(lockCtx, func(txCtx context.Context) error {
					if err := s.installmentRepo.SaveAll(txCtx, raised); err != nil {
						return fmt.Errorf("failed to save installments: %w", err)
					}
					entry, err := sales.NewSaleLog(saleID, sales.LogActionMoraAssessed,
						fmt.Sprintf("Mora assessed on %d installments as of %s", len(raised), asOf.Format("2006-01-02")),
						map[string]any{
							"as_of":          asOf.Format(time.RFC3339),
							"raised_count":   len(raised),
							"total_assessed": totalAssessed.String(),
						}, actorID)
					if err != nil {
						return err
					}
					return s.logRepo.Append(txCtx, entry)
				})
				if err != nil {
					return err
				}

				if err := s.eventBus.Publish(lockCtx, sales.NewMoraAssessedEvent(saleID, asOf, len(raised), totalAssessed)); err != nil {
					telemetry.RecordError(span, err)
				}
			}

			result = &MoraAssessmentResult{
				SaleID:        saleID,
				AsOf:          asOf,
				RaisedCount:   len(raised),
				TotalAssessed: totalAssessed,
			}
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})

	return result, operationErr
}
