package finance

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TreasuryRequestStatus represents the workflow state of an external
// treasury payment notification.
type TreasuryRequestStatus string

const (
	TreasuryStatusPending        TreasuryRequestStatus = "PENDING"
	TreasuryStatusValidated      TreasuryRequestStatus = "VALIDATED"
	TreasuryStatusRequiresManual TreasuryRequestStatus = "REQUIRES_MANUAL"
	TreasuryStatusBlocked        TreasuryRequestStatus = "BLOCKED"
	TreasuryStatusCompleted      TreasuryRequestStatus = "COMPLETED"
)

// IsValid checks if the status is a valid TreasuryRequestStatus
func (s TreasuryRequestStatus) IsValid() bool {
	switch s {
	case TreasuryStatusPending, TreasuryStatusValidated, TreasuryStatusRequiresManual,
		TreasuryStatusBlocked, TreasuryStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of TreasuryRequestStatus
func (s TreasuryRequestStatus) String() string {
	return string(s)
}

// Alert codes preserved from the platform's treasury wire contract.
const (
	AlertAmountExceedsOutstanding = "VALOR_MAYOR_CAPITAL_PENDIENTE"        // Blocking
	AlertTooManyFutureItems       = "APLICACION_A_MUCHAS_CUOTAS_FUTURAS"   // Manual review
	AlertExcessiveFuturePayment   = "PAGO_EN_CUOTAS_NO_VENCIDAS_EXCESIVO"  // Manual review
	AlertAmountInconsistent       = "VALOR_INCONSISTENTE_CON_PLAN"         // Manual review
)

// Validation thresholds from the platform's business rules.
var (
	maxFutureInstallments = 2
	futureAmountThreshold = decimal.NewFromFloat(0.70)
)

// ValidationOutcome classifies a validation run
type ValidationOutcome string

const (
	ValidationClean      ValidationOutcome = "CLEAN"
	ValidationWithAlerts ValidationOutcome = "WITH_ALERTS"
	ValidationBlocked    ValidationOutcome = "BLOCKED"
)

// TreasuryAlert is one validation finding on a request
type TreasuryAlert struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// IsBlocking returns true for alerts that block receipt generation outright
func (a TreasuryAlert) IsBlocking() bool {
	return a.Code == AlertAmountExceedsOutstanding
}

// DeriveAlerts applies the treasury validation rules to a simulated
// allocation of the request amount against the sale's current schedule.
func DeriveAlerts(amount decimal.Decimal, hasSchedule bool, sim *AllocationSimulation) []TreasuryAlert {
	alerts := make([]TreasuryAlert, 0)

	if !amount.IsPositive() || !hasSchedule {
		alerts = append(alerts, TreasuryAlert{
			Code:   AlertAmountInconsistent,
			Detail: "Amount is non-positive or the sale has no payment plan",
		})
		return alerts
	}

	if amount.GreaterThan(sim.TotalOutstanding) {
		alerts = append(alerts, TreasuryAlert{
			Code: AlertAmountExceedsOutstanding,
			Detail: fmt.Sprintf("Amount %s exceeds the sale's outstanding balance %s",
				amount.StringFixed(2), sim.TotalOutstanding.StringFixed(2)),
		})
		return alerts
	}

	if sim.TouchedFuture > maxFutureInstallments {
		alerts = append(alerts, TreasuryAlert{
			Code:   AlertTooManyFutureItems,
			Detail: fmt.Sprintf("Payment reaches %d not-yet-due installments", sim.TouchedFuture),
		})
	}
	if sim.FutureAmount.IsPositive() {
		ratio := sim.FutureAmount.Div(amount)
		if ratio.GreaterThan(futureAmountThreshold) {
			alerts = append(alerts, TreasuryAlert{
				Code: AlertExcessiveFuturePayment,
				Detail: fmt.Sprintf("%s%% of the amount lands on not-yet-due installments",
					ratio.Mul(decimal.NewFromInt(100)).StringFixed(1)),
			})
		}
	}

	return alerts
}

// OutcomeFor classifies a set of alerts
func OutcomeFor(alerts []TreasuryAlert) ValidationOutcome {
	if len(alerts) == 0 {
		return ValidationClean
	}
	for _, a := range alerts {
		if a.IsBlocking() {
			return ValidationBlocked
		}
	}
	return ValidationWithAlerts
}

// newFormToken mints the one-time token that gates manual confirmation.
func newFormToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// TreasuryRequest is an external payment notification working its way to a
// ledgered receipt. Registration is idempotent on the external request id;
// receipt generation is idempotent via the linked receipt.
type TreasuryRequest struct {
	shared.AuditedAggregateRoot
	ExternalRequestID string                `json:"external_request_id"`
	SaleID            uuid.UUID             `json:"sale_id"`
	Amount            decimal.Decimal       `json:"amount"`
	PayerRef          string                `json:"payer_ref"`
	ReceivedAt        time.Time             `json:"received_at"`
	Status            TreasuryRequestStatus `json:"status"`
	Alerts            []TreasuryAlert       `json:"alerts"`
	FormToken         string                `json:"-"` // One-time manual confirmation token
	LinkedReceiptID   *uuid.UUID            `json:"linked_receipt_id"`
	ValidatedAt       *time.Time            `json:"validated_at"`
	ConfirmedAt       *time.Time            `json:"confirmed_at"`
	ConfirmedBy       string                `json:"confirmed_by"`
}

// NewTreasuryRequest registers an external treasury notification
func NewTreasuryRequest(externalRequestID string, saleID uuid.UUID, amount decimal.Decimal, payerRef string, receivedAt time.Time) (*TreasuryRequest, error) {
	if externalRequestID == "" {
		return nil, shared.NewValidationError("External request ID is required")
	}
	if len(externalRequestID) > 100 {
		return nil, shared.NewValidationError("External request ID cannot exceed 100 characters")
	}
	if saleID == uuid.Nil {
		return nil, shared.NewValidationError("Sale ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Request amount must be positive")
	}
	if payerRef == "" {
		return nil, shared.NewValidationError("Payer reference is required")
	}
	if receivedAt.IsZero() {
		return nil, shared.NewValidationError("Received timestamp is required")
	}

	return &TreasuryRequest{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		ExternalRequestID:    externalRequestID,
		SaleID:               saleID,
		Amount:               amount.Round(2),
		PayerRef:             payerRef,
		ReceivedAt:           receivedAt,
		Status:               TreasuryStatusPending,
		Alerts:               make([]TreasuryAlert, 0),
	}, nil
}

// ApplyValidation records the validation findings and moves the request to
// VALIDATED, REQUIRES_MANUAL or BLOCKED. A clean run mints the form token
// the platform returns to treasury. Re-validation is allowed while the
// request is not completed.
func (tr *TreasuryRequest) ApplyValidation(alerts []TreasuryAlert) (ValidationOutcome, error) {
	if tr.Status == TreasuryStatusCompleted {
		return "", shared.NewDomainError("INVALID_STATE", "Request already produced a receipt")
	}

	outcome := OutcomeFor(alerts)
	now := time.Now().UTC()
	tr.Alerts = alerts
	tr.ValidatedAt = &now

	switch outcome {
	case ValidationClean:
		tr.Status = TreasuryStatusValidated
		tr.FormToken = newFormToken()
	case ValidationWithAlerts:
		tr.Status = TreasuryStatusRequiresManual
		tr.FormToken = newFormToken()
	case ValidationBlocked:
		tr.Status = TreasuryStatusBlocked
		tr.FormToken = ""
	}

	tr.UpdatedAt = now
	tr.IncrementVersion()

	return outcome, nil
}

// Confirm applies a manual review decision on a REQUIRES_MANUAL request.
// The caller must present the request's one-time form token.
func (tr *TreasuryRequest) Confirm(formToken, confirmedBy string) error {
	if tr.Status != TreasuryStatusRequiresManual {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot confirm request in %s status", tr.Status))
	}
	if tr.FormToken == "" || formToken != tr.FormToken {
		return shared.NewDomainError("FORBIDDEN", "Invalid confirmation token")
	}
	if confirmedBy == "" {
		return shared.NewValidationError("Confirming reviewer is required")
	}

	now := time.Now().UTC()
	tr.Status = TreasuryStatusValidated
	tr.FormToken = "" // One-time use
	tr.ConfirmedAt = &now
	tr.ConfirmedBy = confirmedBy
	tr.UpdatedAt = now
	tr.IncrementVersion()

	return nil
}

// CanGenerateReceipt returns true if the request may produce a receipt
func (tr *TreasuryRequest) CanGenerateReceipt() bool {
	return tr.Status == TreasuryStatusValidated
}

// LinkReceipt ties the generated receipt to the request and completes it
func (tr *TreasuryRequest) LinkReceipt(receiptID uuid.UUID) error {
	if tr.LinkedReceiptID != nil {
		return shared.NewDomainError("INVALID_STATE", "Request already linked to a receipt")
	}
	if !tr.CanGenerateReceipt() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot generate a receipt for a request in %s status", tr.Status))
	}
	if receiptID == uuid.Nil {
		return shared.NewValidationError("Receipt ID cannot be empty")
	}

	tr.LinkedReceiptID = &receiptID
	tr.Status = TreasuryStatusCompleted
	tr.UpdatedAt = time.Now().UTC()
	tr.IncrementVersion()

	return nil
}
