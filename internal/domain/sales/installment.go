package sales

import (
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bucket identifies one of the three obligation buckets of an installment.
// Allocation always walks buckets in the fixed order returned by BucketOrder.
type Bucket string

const (
	BucketMora      Bucket = "MORA"      // Late-payment penalty
	BucketInterest  Bucket = "INTEREST"  // Financing interest
	BucketPrincipal Bucket = "PRINCIPAL" // Capital
)

// IsValid checks if the bucket is a valid Bucket
func (b Bucket) IsValid() bool {
	switch b {
	case BucketMora, BucketInterest, BucketPrincipal:
		return true
	}
	return false
}

// String returns the string representation of Bucket
func (b Bucket) String() string {
	return string(b)
}

// BucketOrder returns the buckets in allocation priority order:
// mora first, then interest, then principal.
func BucketOrder() []Bucket {
	return []Bucket{BucketMora, BucketInterest, BucketPrincipal}
}

// daysPerMonth is the day-count convention for the monthly mora rate.
var daysPerMonth = decimal.NewFromInt(30)

// Installment is one cuota of a sale's payment schedule. Due amounts are
// split into mora/interest/principal buckets, each paired with a cumulative
// paid counterpart. The invariant paid <= due holds per bucket at all times;
// only the allocation engine raises paid amounts, and only mora assessment
// raises mora_due.
type Installment struct {
	shared.BaseEntity
	SaleID        uuid.UUID       `json:"sale_id"`
	Sequence      string          `json:"sequence"` // e.g. "CI1", "FN12"
	Number        int             `json:"number"`   // Global ordering within the schedule
	DueDate       time.Time       `json:"due_date"`
	MoraDue       decimal.Decimal `json:"mora_due"`
	MoraPaid      decimal.Decimal `json:"mora_paid"`
	InterestDue   decimal.Decimal `json:"interest_due"`
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	PrincipalDue  decimal.Decimal `json:"principal_due"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`
}

// NewInstallment creates an installment with zero paid buckets
func NewInstallment(saleID uuid.UUID, sequence string, number int, dueDate time.Time, principalDue, interestDue decimal.Decimal) (*Installment, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewValidationError("Sale ID cannot be empty")
	}
	if sequence == "" {
		return nil, shared.NewValidationError("Installment sequence code is required")
	}
	if number <= 0 {
		return nil, shared.NewValidationError("Installment number must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("Installment due date is required")
	}
	if principalDue.IsNegative() || interestDue.IsNegative() {
		return nil, shared.NewValidationError("Installment due amounts cannot be negative")
	}

	return &Installment{
		BaseEntity:    shared.NewBaseEntity(),
		SaleID:        saleID,
		Sequence:      sequence,
		Number:        number,
		DueDate:       dueDate,
		MoraDue:       decimal.Zero,
		MoraPaid:      decimal.Zero,
		InterestDue:   interestDue,
		InterestPaid:  decimal.Zero,
		PrincipalDue:  principalDue,
		PrincipalPaid: decimal.Zero,
	}, nil
}

// Due returns the due amount of a bucket
func (i *Installment) Due(b Bucket) decimal.Decimal {
	switch b {
	case BucketMora:
		return i.MoraDue
	case BucketInterest:
		return i.InterestDue
	case BucketPrincipal:
		return i.PrincipalDue
	}
	return decimal.Zero
}

// Paid returns the cumulative paid amount of a bucket
func (i *Installment) Paid(b Bucket) decimal.Decimal {
	switch b {
	case BucketMora:
		return i.MoraPaid
	case BucketInterest:
		return i.InterestPaid
	case BucketPrincipal:
		return i.PrincipalPaid
	}
	return decimal.Zero
}

// Outstanding returns due - paid for a bucket, never negative
func (i *Installment) Outstanding(b Bucket) decimal.Decimal {
	out := i.Due(b).Sub(i.Paid(b))
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Balance returns the total outstanding amount across all buckets
func (i *Installment) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, b := range BucketOrder() {
		total = total.Add(i.Outstanding(b))
	}
	return total
}

// HasPayments returns true if any bucket has received a payment
func (i *Installment) HasPayments() bool {
	return i.MoraPaid.IsPositive() || i.InterestPaid.IsPositive() || i.PrincipalPaid.IsPositive()
}

// IsOverdue returns true if the due date has passed as of the given time
func (i *Installment) IsOverdue(asOf time.Time) bool {
	return i.DueDate.Before(asOf)
}

// ApplyToBucket raises the paid counter of a bucket. The amount must be
// positive and must not push paid above due.
func (i *Installment) ApplyToBucket(b Bucket, amount decimal.Decimal) error {
	if !b.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown bucket %q", b))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("Bucket payment must be positive")
	}
	if amount.GreaterThan(i.Outstanding(b)) {
		return shared.NewDomainError("BUCKET_OVERPAYMENT",
			fmt.Sprintf("Payment %s exceeds outstanding %s of bucket %s on installment %s",
				amount.StringFixed(2), i.Outstanding(b).StringFixed(2), b, i.Sequence))
	}

	switch b {
	case BucketMora:
		i.MoraPaid = i.MoraPaid.Add(amount)
	case BucketInterest:
		i.InterestPaid = i.InterestPaid.Add(amount)
	case BucketPrincipal:
		i.PrincipalPaid = i.PrincipalPaid.Add(amount)
	}
	i.UpdatedAt = time.Now().UTC()

	return nil
}

// AssessMora recomputes the mora bucket for an overdue installment:
//
//	assessed = outstanding_principal * (mora_rate_monthly / 30) * days_late
//
// quantized to 2 decimals half-up. mora_due only ever rises
// (max of current and assessed), so paid <= due is preserved across
// repeated assessments. Returns the assessed amount and whether the
// stored bucket was raised.
func (i *Installment) AssessMora(moraRateMonthly decimal.Decimal, graceDays int, asOf time.Time) (decimal.Decimal, bool) {
	outstandingPrincipal := i.Outstanding(BucketPrincipal)
	if !outstandingPrincipal.IsPositive() || moraRateMonthly.IsZero() {
		return decimal.Zero, false
	}

	daysLate := int(asOf.Sub(i.DueDate).Hours() / 24)
	if daysLate <= graceDays {
		return decimal.Zero, false
	}

	dailyRate := moraRateMonthly.Div(daysPerMonth)
	assessed := outstandingPrincipal.Mul(dailyRate).Mul(decimal.NewFromInt(int64(daysLate))).Round(2)

	if assessed.GreaterThan(i.MoraDue) {
		i.MoraDue = assessed
		i.UpdatedAt = time.Now().UTC()
		return assessed, true
	}
	return assessed, false
}
