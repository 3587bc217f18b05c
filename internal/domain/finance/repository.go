package finance

import (
	"context"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptFilter defines filtering options for receipt queries
type ReceiptFilter struct {
	shared.Filter
	Status   *ReceiptStatus
	FromDate *time.Time
	ToDate   *time.Time
}

// ReceiptRepository defines the interface for payment receipt persistence
type ReceiptRepository interface {
	// FindByID finds a receipt by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentReceipt, error)

	// FindByFingerprint finds a non-voided receipt of the sale with the
	// given fingerprint (duplicate detection)
	FindByFingerprint(ctx context.Context, saleID uuid.UUID, fingerprint string) (*PaymentReceipt, error)

	// FindBySaleID finds receipts of a sale with filtering
	FindBySaleID(ctx context.Context, saleID uuid.UUID, filter ReceiptFilter) ([]PaymentReceipt, error)

	// FindWithSurplusBySaleID finds allocated, non-voided receipts of a
	// sale that still hold standing credit, oldest received first
	FindWithSurplusBySaleID(ctx context.Context, saleID uuid.UUID) ([]*PaymentReceipt, error)

	// AnyBySaleID reports whether the sale has any non-voided receipt
	AnyBySaleID(ctx context.Context, saleID uuid.UUID) (bool, error)

	// Save creates or updates a receipt
	Save(ctx context.Context, receipt *PaymentReceipt) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, receipt *PaymentReceipt) error

	// CountBySaleID counts receipts of a sale
	CountBySaleID(ctx context.Context, saleID uuid.UUID, filter ReceiptFilter) (int64, error)
}

// ApplicationRepository defines the interface for payment application rows
type ApplicationRepository interface {
	// SaveAll persists a batch of application rows
	SaveAll(ctx context.Context, applications []*PaymentApplication) error

	// FindByReceiptID returns the applications created from a receipt
	FindByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]PaymentApplication, error)

	// FindBySaleID returns all applications of a sale, oldest first
	FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]PaymentApplication, error)

	// SumCollectedBySaleID sums application amounts across all three
	// buckets for the sale, excluding applications of voided receipts
	SumCollectedBySaleID(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error)
}

// LiquidationRepository defines the interface for commission liquidation
// aggregates and their history entries
type LiquidationRepository interface {
	// FindBySaleAndAdvisor finds the liquidation aggregate for an advisor
	// on a sale
	FindBySaleAndAdvisor(ctx context.Context, saleID, advisorID uuid.UUID) (*CommissionLiquidation, error)

	// FindBySaleID finds all liquidation aggregates of a sale
	FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]CommissionLiquidation, error)

	// Save creates or updates a liquidation aggregate
	Save(ctx context.Context, liquidation *CommissionLiquidation) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, liquidation *CommissionLiquidation) error

	// AppendEntry persists an immutable liquidation history entry
	AppendEntry(ctx context.Context, entry *LiquidationEntry) error

	// FindEntriesBySaleID returns the liquidation history of a sale,
	// newest first
	FindEntriesBySaleID(ctx context.Context, saleID uuid.UUID) ([]LiquidationEntry, error)
}

// TreasuryRequestRepository defines the interface for treasury request
// persistence
type TreasuryRequestRepository interface {
	// FindByID finds a treasury request by ID
	FindByID(ctx context.Context, id uuid.UUID) (*TreasuryRequest, error)

	// FindByExternalID finds a request by its external request id
	// (idempotent registration)
	FindByExternalID(ctx context.Context, externalRequestID string) (*TreasuryRequest, error)

	// Save creates or updates a treasury request
	Save(ctx context.Context, request *TreasuryRequest) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, request *TreasuryRequest) error
}
