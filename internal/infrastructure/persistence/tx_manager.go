package persistence

import (
	"context"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"gorm.io/gorm"
)

// txContextKey carries the transaction handle through the context so every
// repository call made inside WithinTransaction joins the same transaction.
type txContextKey struct{}

// GormTransactionManager implements shared.TransactionManager on GORM.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// WithinTransaction runs fn inside a single database transaction. Nested
// calls reuse the transaction already present in the context.
func (m *GormTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// txFromContext returns the transaction stored in the context, if any
func txFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// dbFromContext returns the context's transaction when present, the fallback
// connection otherwise. Repositories route every query through this so they
// transparently join an ambient transaction.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}

// Ensure GormTransactionManager implements TransactionManager
var _ shared.TransactionManager = (*GormTransactionManager)(nil)
