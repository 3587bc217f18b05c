package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SaleSyncService ingests sale facts from the sales platform. The
// settlement core does not own sales; it keeps a projection with exactly
// the fields settlement needs and refreshes it on every sync.
type SaleSyncService struct {
	saleRepo    sales.SaleRepository
	receiptRepo finance.ReceiptRepository
	logRepo     sales.SaleLogRepository
	txManager   shared.TransactionManager
	eventBus    shared.EventPublisher
	nameCaser   cases.Caser
}

// NewSaleSyncService creates a new SaleSyncService
func NewSaleSyncService(
	saleRepo sales.SaleRepository,
	receiptRepo finance.ReceiptRepository,
	logRepo sales.SaleLogRepository,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
) *SaleSyncService {
	return &SaleSyncService{
		saleRepo:    saleRepo,
		receiptRepo: receiptRepo,
		logRepo:     logRepo,
		txManager:   txManager,
		eventBus:    eventBus,
		nameCaser:   cases.Title(language.Spanish),
	}
}

// AdvisorInput is one advisor of record in a sync payload
type AdvisorInput struct {
	AdvisorID      uuid.UUID
	AdvisorName    string
	CommissionRate decimal.Decimal
}

// SyncSaleRequest represents a sale snapshot pushed by the platform
type SyncSaleRequest struct {
	SaleNumber string
	BuyerName  string
	SaleValue  decimal.Decimal
	Status     sales.SaleStatus
	Advisors   []AdvisorInput
	ActorID    *uuid.UUID
}

// SyncSaleResult represents the outcome of a sale sync
type SyncSaleResult struct {
	Sale    *sales.Sale `json:"sale"`
	Created bool        `json:"created"`
}

// SyncSale upserts the settlement projection of a sale, keyed by the
// platform sale number. The sale value freezes once receipts exist against
// the sale; advisors of record only accumulate, they are never removed by
// a sync.
func (s *SaleSyncService) SyncSale(ctx context.Context, req SyncSaleRequest) (*SyncSaleResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale_sync", "sync")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleNumber, req.SaleNumber,
		telemetry.SpanAttrAmount, req.SaleValue.String(),
	)

	var result *SyncSaleResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(telemetry.OperationSyncSale, "intake"), func(c context.Context) {
		buyerName := s.displayName(req.BuyerName)

		sale, err := s.saleRepo.FindBySaleNumber(c, req.SaleNumber)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to get sale: %w", err)
			return
		}

		created := sale == nil
		if created {
			sale, err = sales.NewSale(req.SaleNumber, buyerName, req.SaleValue)
			if err != nil {
				telemetry.RecordError(span, err)
				operationErr = err
				return
			}
			if req.ActorID != nil {
				sale.CreatedBy = req.ActorID
			}
		} else {
			if !sale.SaleValue.Equal(req.SaleValue) {
				hasReceipts, err := s.receiptRepo.AnyBySaleID(c, sale.ID)
				if err != nil {
					telemetry.RecordError(span, err)
					operationErr = fmt.Errorf("failed to check receipts: %w", err)
					return
				}
				if hasReceipts {
					err := shared.NewValidationError(
						fmt.Sprintf("Sale %s already has receipts, its value cannot change", sale.SaleNumber))
					telemetry.RecordError(span, err)
					operationErr = err
					return
				}
			}
			if err := sale.UpdateFacts(buyerName, req.SaleValue); err != nil {
				telemetry.RecordError(span, err)
				operationErr = err
				return
			}
		}

		for _, advisor := range req.Advisors {
			if sale.GetAdvisor(advisor.AdvisorID) != nil {
				continue
			}
			if _, err := sale.AddAdvisor(advisor.AdvisorID, s.displayName(advisor.AdvisorName), advisor.CommissionRate); err != nil {
				telemetry.RecordError(span, err)
				operationErr = err
				return
			}
		}

		if req.Status != "" {
			if err := sale.TransitionTo(req.Status); err != nil {
				telemetry.RecordError(span, err)
				operationErr = err
				return
			}
		}

		operationErr = s.txManager.WithinTransaction(c, func(txCtx context.Context) error {
			if created {
				if err := s.saleRepo.Save(txCtx, sale); err != nil {
					return fmt.Errorf("failed to save sale: %w", err)
				}
			} else {
				if err := s.saleRepo.SaveWithLock(txCtx, sale); err != nil {
					return fmt.Errorf("failed to save sale: %w", err)
				}
			}
			entry, err := sales.NewSaleLog(sale.ID, sales.LogActionSaleSynced,
				fmt.Sprintf("Sale %s synced from platform (status %s)", sale.SaleNumber, sale.Status),
				map[string]any{
					"sale_number": sale.SaleNumber,
					"status":      string(sale.Status),
					"created":     created,
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

		if err := s.eventBus.Publish(c, sale.GetDomainEvents()...); err != nil {
			telemetry.RecordError(span, err)
		}
		sale.ClearDomainEvents()

		telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, sale.ID.String())
		result = &SyncSaleResult{Sale: sale, Created: created}
	})

	return result, operationErr
}

// GetSale returns a sale by ID
func (s *SaleSyncService) GetSale(ctx context.Context, saleID uuid.UUID) (*sales.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
	}
	return sale, nil
}

// ListSales returns sales with filtering
func (s *SaleSyncService) ListSales(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	list, err := s.saleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	total, err := s.saleRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return list, total, nil
}

// AuditLog returns the settlement audit entries of a sale, newest first
func (s *SaleSyncService) AuditLog(ctx context.Context, saleID uuid.UUID, filter sales.SaleLogFilter) ([]sales.SaleLog, int64, error) {
	entries, err := s.logRepo.FindBySaleID(ctx, saleID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get audit log: %w", err)
	}
	total, err := s.logRepo.CountBySaleID(ctx, saleID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit log: %w", err)
	}
	return entries, total, nil
}

// displayName normalizes a person name from the platform feed: trimmed,
// single-spaced, Spanish title case.
func (s *SaleSyncService) displayName(name string) string {
	return s.nameCaser.String(strings.Join(strings.Fields(name), " "))
}
