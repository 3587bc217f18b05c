package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TreasuryService runs the wire-intake workflow: treasury registers an
// incoming transfer, validation simulates its allocation and derives alert
// codes, a reviewer confirms flagged transfers with a one-time form token,
// and the final step turns the request into a real receipt and allocates
// it. Every step is idempotent.
type TreasuryService struct {
	treasuryRepo  finance.TreasuryRequestRepository
	saleRepo      sales.SaleRepository
	planRepo      sales.PaymentPlanRepository
	logRepo       sales.SaleLogRepository
	receiptSvc    *ReceiptService
	allocationSvc *PaymentAllocationService
	txManager     shared.TransactionManager
	eventBus      shared.EventPublisher
}

// NewTreasuryService creates a new TreasuryService
func NewTreasuryService(
	treasuryRepo finance.TreasuryRequestRepository,
	saleRepo sales.SaleRepository,
	planRepo sales.PaymentPlanRepository,
	logRepo sales.SaleLogRepository,
	receiptSvc *ReceiptService,
	allocationSvc *PaymentAllocationService,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
) *TreasuryService {
	return &TreasuryService{
		treasuryRepo:  treasuryRepo,
		saleRepo:      saleRepo,
		planRepo:      planRepo,
		logRepo:       logRepo,
		receiptSvc:    receiptSvc,
		allocationSvc: allocationSvc,
		txManager:     txManager,
		eventBus:      eventBus,
	}
}

// RegisterTreasuryRequest represents an incoming wire registration
type RegisterTreasuryRequest struct {
	ExternalRequestID string
	SaleID            uuid.UUID
	Amount            decimal.Decimal
	PayerRef          string
	ReceivedAt        time.Time
	ActorID           *uuid.UUID
}

// Register records an incoming wire transfer against a sale. Registration
// is idempotent on the external request id: re-submitting returns the
// existing request untouched.
func (s *TreasuryService) Register(ctx context.Context, req RegisterTreasuryRequest) (*finance.TreasuryRequest, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "treasury", "register")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, req.SaleID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrExternalID, req.ExternalRequestID,
	)

	existing, err := s.treasuryRepo.FindByExternalID(ctx, req.ExternalRequestID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check external id: %w", err)
	}
	if existing != nil {
		telemetry.AddEvent(span, "treasury_request_already_registered")
		return existing, nil
	}

	sale, err := s.saleRepo.FindByID(ctx, req.SaleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
	}

	request, err := finance.NewTreasuryRequest(req.ExternalRequestID, req.SaleID, req.Amount, req.PayerRef, req.ReceivedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.ActorID != nil {
		request.CreatedBy = req.ActorID
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.treasuryRepo.Save(txCtx, request); err != nil {
			return fmt.Errorf("failed to save treasury request: %w", err)
		}
		entry, err := sales.NewSaleLog(req.SaleID, sales.LogActionTreasuryRegistered,
			fmt.Sprintf("Treasury request %s registered for %s", req.ExternalRequestID, req.Amount.StringFixed(2)),
			map[string]any{
				"request_id":  request.ID.String(),
				"external_id": req.ExternalRequestID,
				"amount":      req.Amount.String(),
			}, req.ActorID)
		if err != nil {
			return err
		}
		return s.logRepo.Append(txCtx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return request, nil
}

// ValidationResult represents the outcome of validating a treasury request
type ValidationResult struct {
	Request *finance.TreasuryRequest  `json:"request"`
	Outcome finance.ValidationOutcome `json:"outcome"`
	Alerts  []finance.TreasuryAlert   `json:"alerts"`
	// FormToken is returned exactly once, on validations that mint one.
	// It never appears on the persisted request again.
	FormToken string `json:"form_token,omitempty"`
}

// Validate simulates the allocation of a registered wire and derives the
// treasury alert codes from the simulation: blocking when the amount
// exceeds the outstanding balance, manual review when the payment reaches
// too far into future installments.
func (s *TreasuryService) Validate(ctx context.Context, requestID uuid.UUID, actorID *uuid.UUID) (*ValidationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "treasury", "validate")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrRequestID, requestID.String())

	request, err := s.treasuryRepo.FindByID(ctx, requestID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get treasury request: %w", err)
	}
	if request == nil {
		return nil, shared.NewDomainError("REQUEST_NOT_FOUND", "Treasury request not found")
	}

	plan, err := s.planRepo.FindBySaleID(ctx, request.SaleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment plan: %w", err)
	}
	hasSchedule := plan != nil

	var sim *finance.AllocationSimulation
	if hasSchedule && request.Amount.IsPositive() {
		sim, err = s.allocationSvc.Simulate(ctx, request.SaleID, request.Amount, time.Now().UTC())
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	alerts := finance.DeriveAlerts(request.Amount, hasSchedule, sim)
	outcome, err := request.ApplyValidation(alerts)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.treasuryRepo.SaveWithLock(txCtx, request); err != nil {
			return fmt.Errorf("failed to save treasury request: %w", err)
		}
		entry, err := sales.NewSaleLog(request.SaleID, sales.LogActionTreasuryValidated,
			fmt.Sprintf("Treasury request %s validated: %s with %d alerts",
				request.ExternalRequestID, outcome, len(alerts)),
			map[string]any{
				"request_id": request.ID.String(),
				"outcome":    string(outcome),
				"alerts":     alertCodes(alerts),
			}, actorID)
		if err != nil {
			return err
		}
		return s.logRepo.Append(txCtx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "treasury_request_validated",
		"outcome", string(outcome),
		"alert_count", len(alerts),
	)
	return &ValidationResult{
		Request:   request,
		Outcome:   outcome,
		Alerts:    alerts,
		FormToken: request.FormToken,
	}, nil
}

// Confirm lets a reviewer approve a request that validation flagged for
// manual review. The form token is single use: a successful confirmation
// burns it.
func (s *TreasuryService) Confirm(ctx context.Context, requestID uuid.UUID, formToken, confirmedBy string, actorID *uuid.UUID) (*finance.TreasuryRequest, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "treasury", "confirm")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrRequestID, requestID.String())

	request, err := s.treasuryRepo.FindByID(ctx, requestID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get treasury request: %w", err)
	}
	if request == nil {
		return nil, shared.NewDomainError("REQUEST_NOT_FOUND", "Treasury request not found")
	}

	if err := request.Confirm(formToken, confirmedBy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.treasuryRepo.SaveWithLock(txCtx, request); err != nil {
			return fmt.Errorf("failed to save treasury request: %w", err)
		}
		entry, err := sales.NewSaleLog(request.SaleID, sales.LogActionTreasuryConfirmed,
			fmt.Sprintf("Treasury request %s confirmed by %s", request.ExternalRequestID, confirmedBy),
			map[string]any{
				"request_id":   request.ID.String(),
				"confirmed_by": confirmedBy,
			}, actorID)
		if err != nil {
			return err
		}
		return s.logRepo.Append(txCtx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return request, nil
}

// TreasuryReceiptResult represents the outcome of generating a receipt
// from a treasury request
type TreasuryReceiptResult struct {
	Request    *finance.TreasuryRequest `json:"request"`
	Receipt    *finance.PaymentReceipt  `json:"receipt"`
	Allocation *AllocationResponse      `json:"allocation,omitempty"`
}

// GenerateReceipt turns a validated treasury request into a payment
// receipt and allocates it. The step is idempotent: a request that already
// produced a receipt returns it without allocating again, and a wire whose
// facts match an existing receipt links that receipt instead of creating a
// duplicate.
func (s *TreasuryService) GenerateReceipt(ctx context.Context, requestID uuid.UUID, actorID *uuid.UUID) (*TreasuryReceiptResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "treasury", "generate_receipt")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrRequestID, requestID.String())

	request, err := s.treasuryRepo.FindByID(ctx, requestID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get treasury request: %w", err)
	}
	if request == nil {
		return nil, shared.NewDomainError("REQUEST_NOT_FOUND", "Treasury request not found")
	}

	if request.LinkedReceiptID != nil {
		receipt, err := s.receiptSvc.GetReceipt(ctx, *request.LinkedReceiptID)
		if err != nil {
			return nil, err
		}
		telemetry.AddEvent(span, "receipt_already_generated",
			telemetry.SpanAttrReceiptID, receipt.ID.String(),
		)
		return &TreasuryReceiptResult{Request: request, Receipt: receipt}, nil
	}

	if !request.CanGenerateReceipt() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Treasury request %s is %s, only validated requests generate receipts",
				request.ExternalRequestID, request.Status))
	}

	ingested, err := s.receiptSvc.IngestReceipt(ctx, IngestReceiptRequest{
		SaleID:     request.SaleID,
		Amount:     request.Amount,
		PayerRef:   request.PayerRef,
		ReceivedAt: request.ReceivedAt,
		ActorID:    actorID,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	receipt := ingested.Receipt

	var allocation *AllocationResponse
	if receipt.CanAllocate() {
		allocation, err = s.allocationSvc.Allocate(ctx, receipt.ID, actorID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := request.LinkReceipt(receipt.ID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.treasuryRepo.SaveWithLock(txCtx, request); err != nil {
			return fmt.Errorf("failed to save treasury request: %w", err)
		}
		entry, err := sales.NewSaleLog(request.SaleID, sales.LogActionTreasuryReceipt,
			fmt.Sprintf("Treasury request %s produced receipt %s", request.ExternalRequestID, receipt.ID),
			map[string]any{
				"request_id": request.ID.String(),
				"receipt_id": receipt.ID.String(),
				"duplicate":  ingested.Duplicate,
			}, actorID)
		if err != nil {
			return err
		}
		return s.logRepo.Append(txCtx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "treasury_receipt_generated",
		telemetry.SpanAttrReceiptID, receipt.ID.String(),
	)
	return &TreasuryReceiptResult{Request: request, Receipt: receipt, Allocation: allocation}, nil
}

// GetRequest returns a treasury request by ID
func (s *TreasuryService) GetRequest(ctx context.Context, requestID uuid.UUID) (*finance.TreasuryRequest, error) {
	request, err := s.treasuryRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get treasury request: %w", err)
	}
	if request == nil {
		return nil, shared.NewDomainError("REQUEST_NOT_FOUND", "Treasury request not found")
	}
	return request, nil
}

func alertCodes(alerts []finance.TreasuryAlert) []string {
	codes := make([]string, 0, len(alerts))
	for _, a := range alerts {
		codes = append(codes, a.Code)
	}
	return codes
}
