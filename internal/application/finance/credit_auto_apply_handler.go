package finance

import (
	"context"
	"fmt"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"go.uber.org/zap"
)

// CreditAutoApplyHandler pushes standing credit back onto the schedule as
// soon as an allocation commits with a residual. It subscribes to
// PaymentAllocated and reacts only when the event carries residual credit,
// so sales whose receipts allocate cleanly never take the extra lock.
type CreditAutoApplyHandler struct {
	allocationService *PaymentAllocationService
	logger            *zap.Logger
}

// NewCreditAutoApplyHandler creates a new handler for payment allocated events
func NewCreditAutoApplyHandler(
	allocationService *PaymentAllocationService,
	logger *zap.Logger,
) *CreditAutoApplyHandler {
	return &CreditAutoApplyHandler{
		allocationService: allocationService,
		logger:            logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CreditAutoApplyHandler) EventTypes() []string {
	return []string{"PaymentAllocated"}
}

// Handle applies the residual credit reported by a PaymentAllocatedEvent
func (h *CreditAutoApplyHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	allocatedEvent, ok := event.(*finance.PaymentAllocatedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "PaymentAllocated"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected PaymentAllocated, got %s", event.EventType())
	}

	if !allocatedEvent.ResidualCredit.IsPositive() {
		return nil
	}

	h.logger.Info("auto-applying residual credit",
		zap.String("sale_id", allocatedEvent.SaleID.String()),
		zap.String("receipt_id", allocatedEvent.ReceiptID.String()),
		zap.String("residual_credit", allocatedEvent.ResidualCredit.String()),
	)

	result, err := h.allocationService.ApplyCredit(ctx, allocatedEvent.SaleID, nil)
	if err != nil {
		h.logger.Error("failed to auto-apply residual credit",
			zap.String("sale_id", allocatedEvent.SaleID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to auto-apply credit: %w", err)
	}

	h.logger.Info("residual credit applied",
		zap.String("sale_id", allocatedEvent.SaleID.String()),
		zap.String("applied_amount", result.AppliedAmount.String()),
		zap.Int("application_count", len(result.Applications)),
	)
	return nil
}
