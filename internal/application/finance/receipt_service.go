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

// EvidenceStorage stores receipt evidence documents (bank vouchers,
// transfer confirmations) in object storage.
type EvidenceStorage interface {
	// Upload stores the document under the given key
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// GenerateDownloadURL returns a presigned URL for reading the document
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// ObjectExists reports whether the document is present
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// ReceiptService handles payment receipt intake: fingerprint-based
// duplicate detection, evidence storage and voiding.
type ReceiptService struct {
	receiptRepo finance.ReceiptRepository
	saleRepo    sales.SaleRepository
	logRepo     sales.SaleLogRepository
	evidence    EvidenceStorage
	txManager   shared.TransactionManager
	eventBus    shared.EventPublisher
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	receiptRepo finance.ReceiptRepository,
	saleRepo sales.SaleRepository,
	logRepo sales.SaleLogRepository,
	evidence EvidenceStorage,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
) *ReceiptService {
	return &ReceiptService{
		receiptRepo: receiptRepo,
		saleRepo:    saleRepo,
		logRepo:     logRepo,
		evidence:    evidence,
		txManager:   txManager,
		eventBus:    eventBus,
	}
}

// IngestReceiptRequest represents a request to record a payment receipt
type IngestReceiptRequest struct {
	SaleID     uuid.UUID
	Amount     decimal.Decimal
	PayerRef   string
	ReceivedAt time.Time
	// Document is the raw evidence file. When present its SHA-256 is the
	// receipt fingerprint; otherwise the fingerprint derives from the
	// payment facts.
	Document       []byte
	DocContentType string
	ActorID        *uuid.UUID
}

// IngestReceiptResult represents the outcome of a receipt ingestion
type IngestReceiptResult struct {
	Receipt *finance.PaymentReceipt `json:"receipt"`
	// Duplicate is true when a non-voided receipt with the same
	// fingerprint already exists; Receipt then points at the existing one
	// and nothing was written.
	Duplicate bool `json:"duplicate"`
}

// IngestReceipt records a payment receipt against a sale. Ingestion is
// idempotent on the fingerprint: re-submitting the same document (or the
// same payment facts) surfaces the existing receipt instead of creating a
// second one.
func (s *ReceiptService) IngestReceipt(ctx context.Context, req IngestReceiptRequest) (*IngestReceiptResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "ingest")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, req.SaleID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	var result *IngestReceiptResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationIngestReceipt, "receipt"), func(c context.Context) {
		if req.ReceivedAt.IsZero() {
			operationErr = shared.NewValidationError("Received-at timestamp is required")
			telemetry.RecordError(span, operationErr)
			return
		}

		sale, err := s.saleRepo.FindByID(c, req.SaleID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to get sale: %w", err)
			return
		}
		if sale == nil {
			operationErr = shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
			telemetry.RecordError(span, operationErr)
			return
		}
		if !sale.IsApproved() {
			telemetry.RecordError(span, shared.ErrSaleNotApproved)
			operationErr = shared.ErrSaleNotApproved
			return
		}

		fingerprint := finance.FingerprintFacts(req.SaleID, req.Amount.Round(2), req.PayerRef, req.ReceivedAt)
		if len(req.Document) > 0 {
			fingerprint = finance.FingerprintDocument(req.Document)
		}
		telemetry.SetAttribute(span, telemetry.SpanAttrFingerprint, fingerprint)

		existing, err := s.receiptRepo.FindByFingerprint(c, req.SaleID, fingerprint)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to check fingerprint: %w", err)
			return
		}
		if existing != nil {
			telemetry.AddEvent(span, "duplicate_receipt_detected",
				telemetry.SpanAttrReceiptID, existing.ID.String(),
			)
			result = &IngestReceiptResult{Receipt: existing, Duplicate: true}
			return
		}

		documentKey := ""
		if len(req.Document) > 0 {
			documentKey = evidenceKey(req.SaleID, fingerprint)
			if err := s.evidence.Upload(c, documentKey, req.Document, req.DocContentType); err != nil {
				telemetry.RecordError(span, err)
				operationErr = fmt.Errorf("failed to store evidence document: %w", err)
				return
			}
		}

		receipt, err := finance.NewPaymentReceipt(req.SaleID, req.Amount, req.PayerRef, req.ReceivedAt, fingerprint, documentKey)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if req.ActorID != nil {
			receipt.CreatedBy = req.ActorID
		}

		operationErr = s.txManager.WithinTransaction(c, func(txCtx context.Context) error {
			if err := s.receiptRepo.Save(txCtx, receipt); err != nil {
				return fmt.Errorf("failed to save receipt: %w", err)
			}
			entry, err := sales.NewSaleLog(sale.ID, sales.LogActionReceiptIngested,
				fmt.Sprintf("Receipt %s ingested for %s", receipt.ID, receipt.Amount.StringFixed(2)),
				map[string]any{
					"receipt_id":  receipt.ID.String(),
					"amount":      receipt.Amount.String(),
					"fingerprint": receipt.Fingerprint,
				}, req.ActorID)
			if err != nil {
				return err
			}
			return s.logRepo.Append(txCtx, entry)
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
			return
		}

		if err := s.eventBus.Publish(c, receipt.GetDomainEvents()...); err != nil {
			telemetry.RecordError(span, err)
		}
		receipt.ClearDomainEvents()

		telemetry.AddEvent(span, "receipt_ingested",
			telemetry.SpanAttrReceiptID, receipt.ID.String(),
		)
		result = &IngestReceiptResult{Receipt: receipt}
	})

	return result, operationErr
}

// VoidReceipt voids a receipt. Applications already made from it stay on
// the schedule but stop counting toward the commission liquidation base,
// which the next snapshot surfaces as an audit flag when the base drops
// below the liquidated mark.
func (s *ReceiptService) VoidReceipt(ctx context.Context, receiptID uuid.UUID, reason string, actorID *uuid.UUID) (*finance.PaymentReceipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "void")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrReceiptID, receiptID.String())

	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return nil, shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
	}

	if err := receipt.Void(reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.receiptRepo.SaveWithLock(txCtx, receipt); err != nil {
			return fmt.Errorf("failed to save receipt: %w", err)
		}
		entry, err := sales.NewSaleLog(receipt.SaleID, sales.LogActionReceiptVoided,
			fmt.Sprintf("Receipt %s voided: %s", receipt.ID, reason),
			map[string]any{
				"receipt_id": receipt.ID.String(),
				"reason":     reason,
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

	if err := s.eventBus.Publish(ctx, receipt.GetDomainEvents()...); err != nil {
		telemetry.RecordError(span, err)
	}
	receipt.ClearDomainEvents()

	return receipt, nil
}

// GetReceipt returns a receipt by ID
func (s *ReceiptService) GetReceipt(ctx context.Context, receiptID uuid.UUID) (*finance.PaymentReceipt, error) {
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return nil, shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
	}
	return receipt, nil
}

// ListReceipts returns the receipts of a sale with filtering
func (s *ReceiptService) ListReceipts(ctx context.Context, saleID uuid.UUID, filter finance.ReceiptFilter) ([]finance.PaymentReceipt, int64, error) {
	receipts, err := s.receiptRepo.FindBySaleID(ctx, saleID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list receipts: %w", err)
	}
	total, err := s.receiptRepo.CountBySaleID(ctx, saleID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}
	return receipts, total, nil
}

// EvidenceURL returns a presigned download URL for the receipt's evidence
// document.
func (s *ReceiptService) EvidenceURL(ctx context.Context, receiptID uuid.UUID, expiresIn time.Duration) (string, time.Time, error) {
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return "", time.Time{}, shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
	}
	if receipt.DocumentKey == "" {
		return "", time.Time{}, shared.NewDomainError("NO_EVIDENCE", "Receipt has no evidence document")
	}
	return s.evidence.GenerateDownloadURL(ctx, receipt.DocumentKey, expiresIn)
}

func evidenceKey(saleID uuid.UUID, fingerprint string) string {
	return fmt.Sprintf("receipts/%s/%s", saleID, fingerprint)
}
