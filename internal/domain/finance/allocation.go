package finance

import (
	"sort"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationResult is the outcome of applying a receipt (or standing
// credit) across a sale's outstanding installments.
type AllocationResult struct {
	Applications   []*PaymentApplication `json:"applications"`
	AppliedAmount  decimal.Decimal       `json:"applied_amount"`
	ResidualCredit decimal.Decimal       `json:"residual_credit"`
}

// AllocationSimulation previews how an amount would land on the current
// schedule without mutating it. The treasury validation rules read the
// future-installment exposure from it.
type AllocationSimulation struct {
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	ResidualCredit   decimal.Decimal `json:"residual_credit"`
	TouchedTotal     int             `json:"touched_total"`
	TouchedFuture    int             `json:"touched_future"`     // Installments not yet due that would receive money
	FutureAmount     decimal.Decimal `json:"future_amount"`      // Portion landing on not-yet-due installments
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`  // Schedule balance before the simulated payment
}

// AllocationService is the waterfall allocator. It walks outstanding
// installments oldest first (due date asc, sequence asc) and pays buckets
// inside each installment in fixed priority mora -> interest -> principal,
// pay = min(remaining, due - paid). It moves to the next installment only
// once the current balance reaches zero or the money is exhausted.
type AllocationService struct{}

// NewAllocationService creates the allocation domain service
func NewAllocationService() *AllocationService {
	return &AllocationService{}
}

// Allocate applies a pending receipt to the schedule. The receipt
// transitions pending -> allocated exactly once; a second call fails with
// ALREADY_ALLOCATED. Leftover money becomes the receipt's residual credit.
// Callers run this inside the per-sale lock and a single transaction.
func (s *AllocationService) Allocate(
	receipt *PaymentReceipt,
	installments []*sales.Installment,
	appliedAt time.Time,
) (*AllocationResult, error) {
	if receipt == nil {
		return nil, shared.NewValidationError("Receipt is required")
	}
	if !receipt.CanAllocate() {
		if receipt.Status == ReceiptStatusAllocated {
			return nil, shared.ErrAlreadyAllocated
		}
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot allocate a voided receipt")
	}

	applications, residual, err := s.waterfall(receipt.ID, receipt.SaleID, receipt.Amount, installments, appliedAt)
	if err != nil {
		return nil, err
	}

	if err := receipt.MarkAllocated(residual, appliedAt); err != nil {
		return nil, err
	}

	applied := receipt.Amount.Sub(residual)
	receipt.AddDomainEvent(NewPaymentAllocatedEvent(receipt, applied, residual, len(applications)))

	return &AllocationResult{
		Applications:   applications,
		AppliedAmount:  applied,
		ResidualCredit: residual,
	}, nil
}

// ApplyCredit runs the waterfall again using a receipt's standing credit as
// the input amount. The consumed portion is deducted from the receipt's
// surplus; whatever still finds no outstanding bucket stays as credit.
func (s *AllocationService) ApplyCredit(
	receipt *PaymentReceipt,
	installments []*sales.Installment,
	appliedAt time.Time,
) (*AllocationResult, error) {
	if receipt == nil {
		return nil, shared.NewValidationError("Receipt is required")
	}
	if receipt.IsVoided() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot apply credit from a voided receipt")
	}
	if !receipt.Surplus.IsPositive() {
		return &AllocationResult{
			Applications:   []*PaymentApplication{},
			AppliedAmount:  decimal.Zero,
			ResidualCredit: decimal.Zero,
		}, nil
	}

	applications, residual, err := s.waterfall(receipt.ID, receipt.SaleID, receipt.Surplus, installments, appliedAt)
	if err != nil {
		return nil, err
	}

	applied := receipt.Surplus.Sub(residual)
	if applied.IsPositive() {
		if err := receipt.ConsumeSurplus(applied); err != nil {
			return nil, err
		}
		receipt.AddDomainEvent(NewCreditAppliedEvent(receipt, applied, len(applications)))
	}

	return &AllocationResult{
		Applications:   applications,
		AppliedAmount:  applied,
		ResidualCredit: residual,
	}, nil
}

// Simulate previews the waterfall for an arbitrary amount on copies of the
// installments, leaving the schedule untouched.
func (s *AllocationService) Simulate(
	amount decimal.Decimal,
	installments []*sales.Installment,
	asOf time.Time,
) (*AllocationSimulation, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Simulated amount must be positive")
	}

	copies := make([]*sales.Installment, len(installments))
	totalOutstanding := decimal.Zero
	for i, inst := range installments {
		c := *inst
		copies[i] = &c
		totalOutstanding = totalOutstanding.Add(inst.Balance())
	}

	// Throwaway receipt identity; simulation rows are never persisted.
	applications, residual, err := s.waterfall(uuid.New(), uuid.Nil, amount, copies, asOf)
	if err != nil {
		return nil, err
	}

	sim := &AllocationSimulation{
		AppliedAmount:    amount.Sub(residual),
		ResidualCredit:   residual,
		FutureAmount:     decimal.Zero,
		TotalOutstanding: totalOutstanding,
	}

	touched := make(map[uuid.UUID]bool)
	touchedFuture := make(map[uuid.UUID]bool)
	for _, app := range applications {
		touched[app.InstallmentID] = true
	}
	for _, inst := range copies {
		if !touched[inst.ID] || inst.IsOverdue(asOf) {
			continue
		}
		touchedFuture[inst.ID] = true
	}
	for _, app := range applications {
		if touchedFuture[app.InstallmentID] {
			sim.FutureAmount = sim.FutureAmount.Add(app.Amount)
		}
	}
	sim.TouchedTotal = len(touched)
	sim.TouchedFuture = len(touchedFuture)

	return sim, nil
}

// waterfall is the shared allocation core. It orders the installments,
// skips fully paid ones, and produces one application row per positive
// bucket payment. Returns the rows and the unapplied remainder.
func (s *AllocationService) waterfall(
	receiptID, saleID uuid.UUID,
	amount decimal.Decimal,
	installments []*sales.Installment,
	appliedAt time.Time,
) ([]*PaymentApplication, decimal.Decimal, error) {
	ordered := make([]*sales.Installment, len(installments))
	copy(ordered, installments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].DueDate.Equal(ordered[j].DueDate) {
			return ordered[i].DueDate.Before(ordered[j].DueDate)
		}
		if ordered[i].Number != ordered[j].Number {
			return ordered[i].Number < ordered[j].Number
		}
		return ordered[i].Sequence < ordered[j].Sequence
	})

	applications := make([]*PaymentApplication, 0)
	remaining := amount

	for _, inst := range ordered {
		if !remaining.IsPositive() {
			break
		}
		for _, bucket := range sales.BucketOrder() {
			if !remaining.IsPositive() {
				break
			}
			outstanding := inst.Outstanding(bucket)
			if !outstanding.IsPositive() {
				continue
			}

			pay := decimal.Min(remaining, outstanding)
			if err := inst.ApplyToBucket(bucket, pay); err != nil {
				return nil, decimal.Zero, err
			}

			app, err := NewPaymentApplication(receiptID, saleID, inst, bucket, pay, appliedAt)
			if err != nil {
				return nil, decimal.Zero, err
			}
			applications = append(applications, app)
			remaining = remaining.Sub(pay)
		}
	}

	return applications, remaining, nil
}
