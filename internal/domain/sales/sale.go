package sales

import (
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the lifecycle status of a sale contract
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"   // Awaiting approval
	SaleStatusApproved  SaleStatus = "APPROVED"  // Approved, commissions can liquidate
	SaleStatusDesisted  SaleStatus = "DESISTED"  // Buyer desisted
	SaleStatusAnnulled  SaleStatus = "ANNULLED"  // Annulled by the company
	SaleStatusCancelled SaleStatus = "CANCELLED" // Cancelled before approval
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusPending, SaleStatusApproved, SaleStatusDesisted, SaleStatusAnnulled, SaleStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the sale is in a terminal state
func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusDesisted || s == SaleStatusAnnulled || s == SaleStatusCancelled
}

// SaleAdvisor links an advisor of record to a sale with their commission rate.
// The rate is a fraction of the sale value (0.03 means 3%).
type SaleAdvisor struct {
	ID             uuid.UUID       `json:"id"`
	SaleID         uuid.UUID       `json:"sale_id"`
	AdvisorID      uuid.UUID       `json:"advisor_id"`
	AdvisorName    string          `json:"advisor_name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// NewSaleAdvisor creates an advisor-of-record entry for a sale
func NewSaleAdvisor(saleID, advisorID uuid.UUID, advisorName string, commissionRate decimal.Decimal) (*SaleAdvisor, error) {
	if advisorID == uuid.Nil {
		return nil, shared.NewValidationError("Advisor ID cannot be empty")
	}
	if advisorName == "" {
		return nil, shared.NewValidationError("Advisor name is required")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewValidationError("Commission rate must be a fraction between 0 and 1")
	}
	return &SaleAdvisor{
		ID:             uuid.New(),
		SaleID:         saleID,
		AdvisorID:      advisorID,
		AdvisorName:    advisorName,
		CommissionRate: commissionRate,
	}, nil
}

// Sale is the settlement-side projection of a sale contract. It is fed by
// the platform through SyncSale and owns the inputs the settlement core
// needs: sale value, approval status and the advisors of record. Value
// fields are immutable once receipts exist against the sale.
type Sale struct {
	shared.AuditedAggregateRoot
	SaleNumber string          `json:"sale_number"`
	BuyerName  string          `json:"buyer_name"`
	SaleValue  decimal.Decimal `json:"sale_value"` // valor_venta
	Status     SaleStatus      `json:"status"`
	ApprovedAt *time.Time      `json:"approved_at"`
	Advisors   []SaleAdvisor   `json:"advisors"`
}

// NewSale creates a sale projection in pending status
func NewSale(saleNumber, buyerName string, saleValue decimal.Decimal) (*Sale, error) {
	if saleNumber == "" {
		return nil, shared.NewValidationError("Sale number is required")
	}
	if len(saleNumber) > 50 {
		return nil, shared.NewValidationError("Sale number cannot exceed 50 characters")
	}
	if buyerName == "" {
		return nil, shared.NewValidationError("Buyer name is required")
	}
	if !saleValue.IsPositive() {
		return nil, shared.NewValidationError("Sale value must be positive")
	}

	s := &Sale{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		SaleNumber:           saleNumber,
		BuyerName:            buyerName,
		SaleValue:            saleValue,
		Status:               SaleStatusPending,
		Advisors:             make([]SaleAdvisor, 0),
	}

	s.AddDomainEvent(NewSaleSyncedEvent(s, true))

	return s, nil
}

// AddAdvisor registers an advisor of record. A given advisor appears at
// most once per sale.
func (s *Sale) AddAdvisor(advisorID uuid.UUID, advisorName string, commissionRate decimal.Decimal) (*SaleAdvisor, error) {
	for _, a := range s.Advisors {
		if a.AdvisorID == advisorID {
			return nil, shared.NewDomainError("ADVISOR_EXISTS",
				fmt.Sprintf("Advisor %s is already registered on sale %s", advisorName, s.SaleNumber))
		}
	}
	advisor, err := NewSaleAdvisor(s.ID, advisorID, advisorName, commissionRate)
	if err != nil {
		return nil, err
	}
	s.Advisors = append(s.Advisors, *advisor)
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	return advisor, nil
}

// GetAdvisor returns the advisor-of-record entry for an advisor, if present
func (s *Sale) GetAdvisor(advisorID uuid.UUID) *SaleAdvisor {
	for i := range s.Advisors {
		if s.Advisors[i].AdvisorID == advisorID {
			return &s.Advisors[i]
		}
	}
	return nil
}

// UpdateFacts refreshes the mutable sale facts from the platform feed.
// Callers must ensure no receipts exist before changing the sale value.
func (s *Sale) UpdateFacts(buyerName string, saleValue decimal.Decimal) error {
	if buyerName == "" {
		return shared.NewValidationError("Buyer name is required")
	}
	if !saleValue.IsPositive() {
		return shared.NewValidationError("Sale value must be positive")
	}

	s.BuyerName = buyerName
	s.SaleValue = saleValue
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()

	s.AddDomainEvent(NewSaleSyncedEvent(s, false))

	return nil
}

// TransitionTo moves the sale to a new lifecycle status as reported by the
// platform. Terminal states cannot be left.
func (s *Sale) TransitionTo(status SaleStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown sale status %q", status))
	}
	if s.Status == status {
		return nil
	}
	if s.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move sale %s from terminal status %s to %s", s.SaleNumber, s.Status, status))
	}

	s.Status = status
	now := time.Now().UTC()
	if status == SaleStatusApproved {
		s.ApprovedAt = &now
		s.AddDomainEvent(NewSaleApprovedEvent(s))
	}
	s.UpdatedAt = now
	s.IncrementVersion()

	return nil
}

// IsApproved returns true if the sale is approved
func (s *Sale) IsApproved() bool {
	return s.Status == SaleStatusApproved
}

// Base20 returns 20% of the sale value, the denominator of the commission
// liquidation ratio, quantized to 2 decimals half-up.
func (s *Sale) Base20() decimal.Decimal {
	return s.SaleValue.Mul(decimal.NewFromFloat(0.20)).Round(2)
}
