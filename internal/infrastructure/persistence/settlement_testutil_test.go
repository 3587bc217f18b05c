package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupSettlementTestDB creates an in-memory SQLite database with the full
// settlement schema
func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.SaleModel{},
		&models.SaleAdvisorModel{},
		&models.PaymentPlanModel{},
		&models.InstallmentModel{},
		&models.SaleLogModel{},
		&models.PaymentReceiptModel{},
		&models.PaymentApplicationModel{},
		&models.CommissionLiquidationModel{},
		&models.LiquidationEntryModel{},
		&models.TreasuryRequestModel{},
	)
	require.NoError(t, err)

	return db
}

// newApprovedSale creates and persists an approved sale for tests
func newApprovedSale(t *testing.T, db *gorm.DB, saleNumber string, saleValue int64) *sales.Sale {
	t.Helper()

	sale, err := sales.NewSale(saleNumber, "Maria Gomez", decimal.NewFromInt(saleValue))
	require.NoError(t, err)
	require.NoError(t, sale.TransitionTo(sales.SaleStatusApproved))

	repo := NewGormSaleRepository(db)
	require.NoError(t, repo.Save(context.Background(), sale))
	return sale
}

// newPendingReceipt creates and persists a pending receipt for tests
func newPendingReceipt(t *testing.T, db *gorm.DB, sale *sales.Sale, amount int64, payerRef string) *finance.PaymentReceipt {
	t.Helper()

	receivedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fingerprint := finance.FingerprintFacts(sale.ID, decimal.NewFromInt(amount), payerRef, receivedAt)
	receipt, err := finance.NewPaymentReceipt(sale.ID, decimal.NewFromInt(amount), payerRef, receivedAt, fingerprint, "")
	require.NoError(t, err)

	repo := NewGormReceiptRepository(db)
	require.NoError(t, repo.Save(context.Background(), receipt))
	return receipt
}
