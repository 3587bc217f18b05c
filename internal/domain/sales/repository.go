package sales

import (
	"context"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleFilter defines filtering options for sale queries
type SaleFilter struct {
	shared.Filter
	Status    *SaleStatus // Filter by lifecycle status
	AdvisorID *uuid.UUID  // Filter sales with this advisor of record
	FromDate  *time.Time  // Filter by creation date range start
	ToDate    *time.Time  // Filter by creation date range end
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// FindByID finds a sale by ID, advisors included
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindBySaleNumber finds a sale by its platform sale number
	FindBySaleNumber(ctx context.Context, saleNumber string) (*Sale, error)

	// FindAll finds sales with filtering
	FindAll(ctx context.Context, filter SaleFilter) ([]Sale, error)

	// FindApprovedWithAdvisors finds approved sales that have at least one
	// advisor of record, for the liquidation queue
	FindApprovedWithAdvisors(ctx context.Context) ([]Sale, error)

	// Save creates or updates a sale and its advisors
	Save(ctx context.Context, sale *Sale) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, sale *Sale) error

	// Count counts sales matching the filter
	Count(ctx context.Context, filter SaleFilter) (int64, error)
}

// PaymentPlanRepository defines the interface for payment plan persistence
type PaymentPlanRepository interface {
	// FindBySaleID finds the plan of a sale
	FindBySaleID(ctx context.Context, saleID uuid.UUID) (*PaymentPlan, error)

	// Save creates or updates a payment plan
	Save(ctx context.Context, plan *PaymentPlan) error

	// DeleteBySaleID removes the plan of a sale (schedule regeneration)
	DeleteBySaleID(ctx context.Context, saleID uuid.UUID) error
}

// InstallmentRepository defines the interface for installment persistence
type InstallmentRepository interface {
	// FindByID finds an installment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)

	// FindBySaleID returns the full schedule of a sale ordered by due date
	// ascending, then sequence code ascending
	FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]*Installment, error)

	// FindOutstandingBySaleID returns the schedule restricted to
	// installments with balance > 0, in the same ordering
	FindOutstandingBySaleID(ctx context.Context, saleID uuid.UUID) ([]*Installment, error)

	// Save creates or updates a single installment
	Save(ctx context.Context, installment *Installment) error

	// SaveAll persists a batch of installments
	SaveAll(ctx context.Context, installments []*Installment) error

	// DeleteBySaleID removes a sale's schedule (regeneration while unpaid)
	DeleteBySaleID(ctx context.Context, saleID uuid.UUID) error

	// AnyPaidBySaleID reports whether any installment of the sale has
	// received a payment
	AnyPaidBySaleID(ctx context.Context, saleID uuid.UUID) (bool, error)
}

// SaleLogFilter defines filtering options for audit log queries
type SaleLogFilter struct {
	shared.Filter
	Action   *SaleLogAction
	FromDate *time.Time
	ToDate   *time.Time
}

// SaleLogRepository defines the interface for settlement audit entries
type SaleLogRepository interface {
	// Append persists a new audit entry
	Append(ctx context.Context, entry *SaleLog) error

	// FindBySaleID returns audit entries for a sale, newest first
	FindBySaleID(ctx context.Context, saleID uuid.UUID, filter SaleLogFilter) ([]SaleLog, error)

	// CountBySaleID counts audit entries for a sale
	CountBySaleID(ctx context.Context, saleID uuid.UUID, filter SaleLogFilter) (int64, error)
}
