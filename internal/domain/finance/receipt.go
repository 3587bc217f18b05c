package finance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptStatus represents the allocation state of a payment receipt
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "PENDING"   // Ingested, not yet allocated
	ReceiptStatusAllocated ReceiptStatus = "ALLOCATED" // Applied to the schedule
	ReceiptStatusVoided    ReceiptStatus = "VOIDED"    // Excluded from all computations
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusAllocated, ReceiptStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// FingerprintDocument returns the hex SHA-256 of a receipt's evidence bytes
func FingerprintDocument(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// FingerprintFacts returns a fingerprint over the receipt facts, used when
// no evidence document is attached so duplicate detection still works.
func FingerprintFacts(saleID uuid.UUID, amount decimal.Decimal, payerRef string, receivedAt time.Time) string {
	canonical := fmt.Sprintf("%s|%s|%s|%s",
		saleID, amount.StringFixed(2), payerRef, receivedAt.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// PaymentReceipt is the immutable ledger record of money received for a
// sale. Receipts are deduplicated by fingerprint, transition pending ->
// allocated exactly once, and may be voided (soft state); voided receipts
// are excluded from future allocation and liquidation computations. The
// surplus field tracks the receipt's residual credit still available for a
// later explicit credit application.
type PaymentReceipt struct {
	shared.AuditedAggregateRoot
	SaleID      uuid.UUID       `json:"sale_id"`
	Amount      decimal.Decimal `json:"amount"`
	PayerRef    string          `json:"payer_ref"`
	ReceivedAt  time.Time       `json:"received_at"`
	Fingerprint string          `json:"fingerprint"`
	DocumentKey string          `json:"document_key"` // Opaque evidence storage key
	Status      ReceiptStatus   `json:"status"`
	Surplus     decimal.Decimal `json:"surplus"` // Residual credit still unapplied
	AllocatedAt *time.Time      `json:"allocated_at"`
	VoidedAt    *time.Time      `json:"voided_at"`
	VoidReason  string          `json:"void_reason"`
}

// NewPaymentReceipt creates a pending receipt. The fingerprint must already
// be computed (over the document when present, over the facts otherwise).
func NewPaymentReceipt(
	saleID uuid.UUID,
	amount decimal.Decimal,
	payerRef string,
	receivedAt time.Time,
	fingerprint string,
	documentKey string,
) (*PaymentReceipt, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewValidationError("Sale ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Receipt amount must be positive")
	}
	if payerRef == "" {
		return nil, shared.NewValidationError("Payer reference is required")
	}
	if len(payerRef) > 200 {
		return nil, shared.NewValidationError("Payer reference cannot exceed 200 characters")
	}
	if receivedAt.IsZero() {
		return nil, shared.NewValidationError("Received timestamp is required")
	}
	if fingerprint == "" {
		return nil, shared.NewValidationError("Receipt fingerprint is required")
	}

	r := &PaymentReceipt{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		SaleID:               saleID,
		Amount:               amount.Round(2),
		PayerRef:             payerRef,
		ReceivedAt:           receivedAt,
		Fingerprint:          fingerprint,
		DocumentKey:          documentKey,
		Status:               ReceiptStatusPending,
		Surplus:              decimal.Zero,
	}

	r.AddDomainEvent(NewReceiptIngestedEvent(r))

	return r, nil
}

// CanAllocate returns true if the receipt is still pending allocation
func (r *PaymentReceipt) CanAllocate() bool {
	return r.Status == ReceiptStatusPending
}

// IsVoided returns true if the receipt has been voided
func (r *PaymentReceipt) IsVoided() bool {
	return r.Status == ReceiptStatusVoided
}

// MarkAllocated transitions the receipt pending -> allocated, recording the
// residual credit left after the waterfall. A receipt allocates exactly
// once; a second attempt fails with ALREADY_ALLOCATED.
func (r *PaymentReceipt) MarkAllocated(surplus decimal.Decimal, at time.Time) error {
	if r.Status == ReceiptStatusAllocated {
		return shared.ErrAlreadyAllocated
	}
	if r.Status == ReceiptStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Cannot allocate a voided receipt")
	}
	if surplus.IsNegative() {
		return shared.NewValidationError("Residual credit cannot be negative")
	}
	if surplus.GreaterThan(r.Amount) {
		return shared.NewValidationError("Residual credit cannot exceed the receipt amount")
	}

	r.Status = ReceiptStatusAllocated
	r.Surplus = surplus
	r.AllocatedAt = &at
	r.UpdatedAt = time.Now().UTC()
	r.IncrementVersion()

	return nil
}

// ConsumeSurplus lowers the receipt's standing credit after an explicit
// credit application pass.
func (r *PaymentReceipt) ConsumeSurplus(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("Consumed credit must be positive")
	}
	if amount.GreaterThan(r.Surplus) {
		return shared.NewDomainError("INSUFFICIENT_CREDIT",
			fmt.Sprintf("Cannot consume %s from a standing credit of %s", amount.StringFixed(2), r.Surplus.StringFixed(2)))
	}
	r.Surplus = r.Surplus.Sub(amount)
	r.UpdatedAt = time.Now().UTC()
	r.IncrementVersion()
	return nil
}

// Void marks the receipt voided. Existing PaymentApplication rows are not
// undone here; application reversal is a separate workflow. Voided receipts
// are excluded from all future allocation and liquidation computations.
func (r *PaymentReceipt) Void(reason string) error {
	if r.Status == ReceiptStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Receipt is already voided")
	}
	if reason == "" {
		return shared.NewValidationError("Void reason is required")
	}

	now := time.Now().UTC()
	r.Status = ReceiptStatusVoided
	r.VoidedAt = &now
	r.VoidReason = reason
	r.Surplus = decimal.Zero
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReceiptVoidedEvent(r, reason))

	return nil
}
