package finance

import (
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptIngestedEvent is raised when a new payment receipt enters the ledger
type ReceiptIngestedEvent struct {
	shared.BaseDomainEvent
	ReceiptID   uuid.UUID       `json:"receipt_id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	Amount      decimal.Decimal `json:"amount"`
	PayerRef    string          `json:"payer_ref"`
	ReceivedAt  time.Time       `json:"received_at"`
	Fingerprint string          `json:"fingerprint"`
}

// EventType returns the event type name
func (e *ReceiptIngestedEvent) EventType() string {
	return "ReceiptIngested"
}

// NewReceiptIngestedEvent creates a new ReceiptIngestedEvent
func NewReceiptIngestedEvent(r *PaymentReceipt) *ReceiptIngestedEvent {
	return &ReceiptIngestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ReceiptIngested", "PaymentReceipt", r.ID),
		ReceiptID:       r.ID,
		SaleID:          r.SaleID,
		Amount:          r.Amount,
		PayerRef:        r.PayerRef,
		ReceivedAt:      r.ReceivedAt,
		Fingerprint:     r.Fingerprint,
	}
}

// ReceiptVoidedEvent is raised when a receipt is voided
type ReceiptVoidedEvent struct {
	shared.BaseDomainEvent
	ReceiptID uuid.UUID       `json:"receipt_id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// EventType returns the event type name
func (e *ReceiptVoidedEvent) EventType() string {
	return "ReceiptVoided"
}

// NewReceiptVoidedEvent creates a new ReceiptVoidedEvent
func NewReceiptVoidedEvent(r *PaymentReceipt, reason string) *ReceiptVoidedEvent {
	return &ReceiptVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ReceiptVoided", "PaymentReceipt", r.ID),
		ReceiptID:       r.ID,
		SaleID:          r.SaleID,
		Amount:          r.Amount,
		Reason:          reason,
	}
}

// PaymentAllocatedEvent is raised when a receipt's waterfall allocation
// commits
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	ReceiptID        uuid.UUID       `json:"receipt_id"`
	SaleID           uuid.UUID       `json:"sale_id"`
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	ResidualCredit   decimal.Decimal `json:"residual_credit"`
	ApplicationCount int             `json:"application_count"`
}

// EventType returns the event type name
func (e *PaymentAllocatedEvent) EventType() string {
	return "PaymentAllocated"
}

// NewPaymentAllocatedEvent creates a new PaymentAllocatedEvent
func NewPaymentAllocatedEvent(r *PaymentReceipt, applied, residual decimal.Decimal, applicationCount int) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("PaymentAllocated", "PaymentReceipt", r.ID),
		ReceiptID:        r.ID,
		SaleID:           r.SaleID,
		AppliedAmount:    applied,
		ResidualCredit:   residual,
		ApplicationCount: applicationCount,
	}
}

// CreditAppliedEvent is raised when standing credit from an allocated
// receipt is pushed onto the schedule
type CreditAppliedEvent struct {
	shared.BaseDomainEvent
	ReceiptID        uuid.UUID       `json:"receipt_id"`
	SaleID           uuid.UUID       `json:"sale_id"`
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	RemainingCredit  decimal.Decimal `json:"remaining_credit"`
	ApplicationCount int             `json:"application_count"`
}

// EventType returns the event type name
func (e *CreditAppliedEvent) EventType() string {
	return "CreditApplied"
}

// NewCreditAppliedEvent creates a new CreditAppliedEvent
func NewCreditAppliedEvent(r *PaymentReceipt, applied decimal.Decimal, applicationCount int) *CreditAppliedEvent {
	return &CreditAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("CreditApplied", "PaymentReceipt", r.ID),
		ReceiptID:        r.ID,
		SaleID:           r.SaleID,
		AppliedAmount:    applied,
		RemainingCredit:  r.Surplus,
		ApplicationCount: applicationCount,
	}
}
