package finance

import (
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentApplication ties part of a receipt's amount to one
// (installment, bucket) pair. Rows are immutable once created;
// corrections create compensating rows, never edits. Exclusion of a voided
// receipt's applications from totals happens at query time by joining the
// receipt status.
type PaymentApplication struct {
	ID            uuid.UUID       `json:"id"`
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	SaleID        uuid.UUID       `json:"sale_id"`
	InstallmentID uuid.UUID       `json:"installment_id"`
	Sequence      string          `json:"sequence"` // Denormalized installment code for display
	Bucket        sales.Bucket    `json:"bucket"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAt     time.Time       `json:"applied_at"`
}

// NewPaymentApplication creates an application row
func NewPaymentApplication(
	receiptID, saleID uuid.UUID,
	installment *sales.Installment,
	bucket sales.Bucket,
	amount decimal.Decimal,
	appliedAt time.Time,
) (*PaymentApplication, error) {
	if receiptID == uuid.Nil {
		return nil, shared.NewValidationError("Receipt ID cannot be empty")
	}
	if installment == nil {
		return nil, shared.NewValidationError("Installment is required")
	}
	if !bucket.IsValid() {
		return nil, shared.NewValidationError("Unknown application bucket")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Application amount must be positive")
	}

	return &PaymentApplication{
		ID:            uuid.New(),
		ReceiptID:     receiptID,
		SaleID:        saleID,
		InstallmentID: installment.ID,
		Sequence:      installment.Sequence,
		Bucket:        bucket,
		Amount:        amount,
		AppliedAt:     appliedAt,
	}, nil
}
