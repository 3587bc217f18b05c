package sales

import (
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleLogAction categorizes settlement audit entries
type SaleLogAction string

const (
	LogActionSaleSynced           SaleLogAction = "SALE_SYNCED"
	LogActionScheduleGenerated    SaleLogAction = "SCHEDULE_GENERATED"
	LogActionMoraAssessed         SaleLogAction = "MORA_ASSESSED"
	LogActionReceiptIngested      SaleLogAction = "RECEIPT_INGESTED"
	LogActionReceiptVoided        SaleLogAction = "RECEIPT_VOIDED"
	LogActionPaymentAllocated     SaleLogAction = "PAYMENT_ALLOCATED"
	LogActionCreditApplied        SaleLogAction = "CREDIT_APPLIED"
	LogActionCommissionLiquidated SaleLogAction = "COMMISSION_LIQUIDATED"
	LogActionTreasuryRegistered   SaleLogAction = "TREASURY_REGISTERED"
	LogActionTreasuryValidated    SaleLogAction = "TREASURY_VALIDATED"
	LogActionTreasuryConfirmed    SaleLogAction = "TREASURY_CONFIRMED"
	LogActionTreasuryReceipt      SaleLogAction = "TREASURY_RECEIPT"
)

// IsValid checks if the action is a valid SaleLogAction
func (a SaleLogAction) IsValid() bool {
	switch a {
	case LogActionSaleSynced, LogActionScheduleGenerated, LogActionMoraAssessed,
		LogActionReceiptIngested, LogActionReceiptVoided, LogActionPaymentAllocated,
		LogActionCreditApplied, LogActionCommissionLiquidated,
		LogActionTreasuryRegistered, LogActionTreasuryValidated,
		LogActionTreasuryConfirmed, LogActionTreasuryReceipt:
		return true
	}
	return false
}

// String returns the string representation of SaleLogAction
func (a SaleLogAction) String() string {
	return string(a)
}

// SaleLog is an immutable audit entry appended in the same transaction as
// the settlement mutation it describes.
type SaleLog struct {
	shared.BaseEntity
	SaleID   uuid.UUID      `json:"sale_id"`
	Action   SaleLogAction  `json:"action"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
	ActorID  *uuid.UUID     `json:"actor_id"`
}

// NewSaleLog creates an audit entry for a sale
func NewSaleLog(saleID uuid.UUID, action SaleLogAction, message string, metadata map[string]any, actorID *uuid.UUID) (*SaleLog, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewValidationError("Sale ID cannot be empty")
	}
	if !action.IsValid() {
		return nil, shared.NewValidationError("Unknown sale log action")
	}
	if message == "" {
		return nil, shared.NewValidationError("Sale log message is required")
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &SaleLog{
		BaseEntity: shared.NewBaseEntity(),
		SaleID:     saleID,
		Action:     action,
		Message:    message,
		Metadata:   metadata,
		ActorID:    actorID,
	}, nil
}
