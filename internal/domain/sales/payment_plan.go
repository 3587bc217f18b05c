package sales

import (
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Periodicity is the interval between initial-payment installments
type Periodicity string

const (
	PeriodicityMonthly    Periodicity = "MONTHLY"
	PeriodicityQuarterly  Periodicity = "QUARTERLY"
	PeriodicitySemiannual Periodicity = "SEMIANNUAL"
	PeriodicityAnnual     Periodicity = "ANNUAL"
)

// IsValid checks if the periodicity is a valid Periodicity
func (p Periodicity) IsValid() bool {
	switch p {
	case PeriodicityMonthly, PeriodicityQuarterly, PeriodicitySemiannual, PeriodicityAnnual:
		return true
	}
	return false
}

// String returns the string representation of Periodicity
func (p Periodicity) String() string {
	return string(p)
}

// Months returns the number of months between consecutive installments
func (p Periodicity) Months() int {
	switch p {
	case PeriodicityQuarterly:
		return 3
	case PeriodicitySemiannual:
		return 6
	case PeriodicityAnnual:
		return 12
	default:
		return 1
	}
}

// AmortizationSystem selects how financed installments split into
// principal and interest.
type AmortizationSystem string

const (
	AmortizationFrench AmortizationSystem = "FRENCH" // Constant payment (annuity)
	AmortizationGerman AmortizationSystem = "GERMAN" // Constant principal, declining interest
	AmortizationSimple AmortizationSystem = "SIMPLE" // Equal principal, flat interest on full amount
)

// IsValid checks if the amortization system is valid
func (a AmortizationSystem) IsValid() bool {
	switch a {
	case AmortizationFrench, AmortizationGerman, AmortizationSimple:
		return true
	}
	return false
}

// String returns the string representation of AmortizationSystem
func (a AmortizationSystem) String() string {
	return string(a)
}

// PaymentPlan holds the financing parameters of a sale and materializes the
// installment schedule from them. The initial payment is split into equal
// CI installments (no interest); the financed remainder amortizes into FN
// installments per the configured system.
type PaymentPlan struct {
	shared.BaseAggregateRoot
	SaleID               uuid.UUID          `json:"sale_id"`
	PriceTotal           decimal.Decimal    `json:"price_total"`
	InitialAmount        decimal.Decimal    `json:"initial_amount"`
	InitialInstallments  int                `json:"initial_installments"`
	InitialPeriodicity   Periodicity        `json:"initial_periodicity"`
	FinancedAmount       decimal.Decimal    `json:"financed_amount"`
	FinancedInstallments int                `json:"financed_installments"`
	MonthlyRate          decimal.Decimal    `json:"monthly_rate"` // Fraction per month, e.g. 0.012
	Amortization         AmortizationSystem `json:"amortization"`
	MoraRateMonthly      decimal.Decimal    `json:"mora_rate_monthly"`
	GraceDays            int                `json:"grace_days"`
	StartDate            time.Time          `json:"start_date"`
}

// NewPaymentPlan creates a payment plan for a sale
func NewPaymentPlan(
	saleID uuid.UUID,
	priceTotal, initialAmount decimal.Decimal,
	initialInstallments int,
	initialPeriodicity Periodicity,
	financedInstallments int,
	monthlyRate decimal.Decimal,
	amortization AmortizationSystem,
	moraRateMonthly decimal.Decimal,
	graceDays int,
	startDate time.Time,
) (*PaymentPlan, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewValidationError("Sale ID cannot be empty")
	}
	if !priceTotal.IsPositive() {
		return nil, shared.NewValidationError("Plan price must be positive")
	}
	if initialAmount.IsNegative() || initialAmount.GreaterThan(priceTotal) {
		return nil, shared.NewValidationError("Initial amount must be between 0 and the plan price")
	}
	if initialAmount.IsPositive() && initialInstallments <= 0 {
		return nil, shared.NewValidationError("Initial installment count must be positive")
	}
	if !initialPeriodicity.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown periodicity %q", initialPeriodicity))
	}
	financed := priceTotal.Sub(initialAmount)
	if financed.IsPositive() && financedInstallments <= 0 {
		return nil, shared.NewValidationError("Financed installment count must be positive")
	}
	if monthlyRate.IsNegative() {
		return nil, shared.NewValidationError("Monthly rate cannot be negative")
	}
	if !amortization.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown amortization system %q", amortization))
	}
	if moraRateMonthly.IsNegative() {
		return nil, shared.NewValidationError("Mora rate cannot be negative")
	}
	if graceDays < 0 {
		return nil, shared.NewValidationError("Grace days cannot be negative")
	}
	if startDate.IsZero() {
		return nil, shared.NewValidationError("Plan start date is required")
	}

	return &PaymentPlan{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		SaleID:               saleID,
		PriceTotal:           priceTotal,
		InitialAmount:        initialAmount,
		InitialInstallments:  initialInstallments,
		InitialPeriodicity:   initialPeriodicity,
		FinancedAmount:       financed,
		FinancedInstallments: financedInstallments,
		MonthlyRate:          monthlyRate,
		Amortization:         amortization,
		MoraRateMonthly:      moraRateMonthly,
		GraceDays:            graceDays,
		StartDate:            startDate,
	}, nil
}

// GenerateSchedule materializes the installments of the plan. Initial
// installments are coded CI1..CIn (equal principal splits, the last one
// absorbs the rounding remainder, no interest). Financed installments
// FN1..FNm follow monthly after the last initial installment and amortize
// per the configured system; per-installment interest and principal are
// quantized to 2 decimals half-up, with the final installment absorbing
// the residual principal so the schedule sums exactly.
func (p *PaymentPlan) GenerateSchedule() ([]*Installment, error) {
	installments := make([]*Installment, 0, p.InitialInstallments+p.FinancedInstallments)
	number := 0
	nextDue := p.StartDate

	if p.InitialAmount.IsPositive() {
		parts, err := valueobject.NewMoneyCOP(p.InitialAmount).Allocate(p.InitialInstallments)
		if err != nil {
			return nil, err
		}
		step := p.InitialPeriodicity.Months()
		for idx, part := range parts {
			number++
			inst, err := NewInstallment(p.SaleID, fmt.Sprintf("CI%d", idx+1), number, nextDue, part.Amount(), decimal.Zero)
			if err != nil {
				return nil, err
			}
			installments = append(installments, inst)
			nextDue = nextDue.AddDate(0, step, 0)
		}
	}

	if p.FinancedAmount.IsPositive() {
		financed, err := p.amortize()
		if err != nil {
			return nil, err
		}
		for idx, line := range financed {
			number++
			inst, err := NewInstallment(p.SaleID, fmt.Sprintf("FN%d", idx+1), number, nextDue, line.principal, line.interest)
			if err != nil {
				return nil, err
			}
			installments = append(installments, inst)
			nextDue = nextDue.AddDate(0, 1, 0)
		}
	}

	if len(installments) == 0 {
		return nil, shared.NewValidationError("Plan produces no installments")
	}
	return installments, nil
}

type amortizationLine struct {
	principal decimal.Decimal
	interest  decimal.Decimal
}

func (p *PaymentPlan) amortize() ([]amortizationLine, error) {
	m := p.FinancedInstallments
	lines := make([]amortizationLine, m)
	one := decimal.NewFromInt(1)
	periods := decimal.NewFromInt(int64(m))

	switch p.Amortization {
	case AmortizationFrench:
		if p.MonthlyRate.IsZero() {
			return p.constantPrincipal(decimal.Zero), nil
		}
		// payment = F * r * (1+r)^m / ((1+r)^m - 1)
		compound := one.Add(p.MonthlyRate).Pow(periods)
		payment := p.FinancedAmount.Mul(p.MonthlyRate).Mul(compound).Div(compound.Sub(one)).Round(2)

		balance := p.FinancedAmount
		for i := 0; i < m; i++ {
			interest := balance.Mul(p.MonthlyRate).Round(2)
			principal := payment.Sub(interest)
			if i == m-1 {
				principal = balance
			}
			lines[i] = amortizationLine{principal: principal, interest: interest}
			balance = balance.Sub(principal)
		}
		return lines, nil

	case AmortizationGerman:
		lines = p.constantPrincipal(decimal.Zero)
		balance := p.FinancedAmount
		for i := 0; i < m; i++ {
			lines[i].interest = balance.Mul(p.MonthlyRate).Round(2)
			balance = balance.Sub(lines[i].principal)
		}
		return lines, nil

	case AmortizationSimple:
		flat := p.FinancedAmount.Mul(p.MonthlyRate).Round(2)
		return p.constantPrincipal(flat), nil
	}

	return nil, shared.NewValidationError(fmt.Sprintf("Unknown amortization system %q", p.Amortization))
}

// constantPrincipal splits the financed amount into equal 2dp principal
// parts (last absorbs the remainder) with the given flat interest per line.
func (p *PaymentPlan) constantPrincipal(interestPerLine decimal.Decimal) []amortizationLine {
	m := p.FinancedInstallments
	lines := make([]amortizationLine, m)
	base := p.FinancedAmount.Div(decimal.NewFromInt(int64(m))).Round(2)
	allocated := decimal.Zero
	for i := 0; i < m-1; i++ {
		lines[i] = amortizationLine{principal: base, interest: interestPerLine}
		allocated = allocated.Add(base)
	}
	lines[m-1] = amortizationLine{principal: p.FinancedAmount.Sub(allocated), interest: interestPerLine}
	return lines
}
