package shared

import (
	"context"

	"github.com/google/uuid"
)

// SaleLocker serializes settlement operations per sale. Allocation, credit
// application, mora assessment and liquidation all run inside WithLock so
// two operations on the same sale never compute overlapping outstanding
// snapshots; operations on different sales proceed in parallel.
//
// Implementations wait a bounded amount of time (retries with backoff) and
// return ErrContention when the lock cannot be acquired, which callers may
// retry.
type SaleLocker interface {
	// WithLock runs fn while holding the exclusive lock for the sale.
	// The lock is released when fn returns.
	WithLock(ctx context.Context, saleID uuid.UUID, fn func(ctx context.Context) error) error
}

// TransactionManager runs a function inside a single database transaction.
// Repository calls made with the context passed to fn join that
// transaction, so a settlement operation is all-or-nothing: any error
// rolls back every mutation.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
