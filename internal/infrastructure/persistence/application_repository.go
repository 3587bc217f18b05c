package persistence

import (
	"context"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormApplicationRepository implements ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

func (r *GormApplicationRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// SaveAll persists a batch of application rows. Rows are insert-only.
func (r *GormApplicationRepository) SaveAll(ctx context.Context, applications []*finance.PaymentApplication) error {
	if len(applications) == 0 {
		return nil
	}
	modelList := make([]models.PaymentApplicationModel, len(applications))
	for i, app := range applications {
		modelList[i] = *models.PaymentApplicationModelFromDomain(app)
	}
	return r.conn(ctx).Create(&modelList).Error
}

// FindByReceiptID returns the applications created from a receipt
func (r *GormApplicationRepository) FindByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]finance.PaymentApplication, error) {
	var modelList []models.PaymentApplicationModel
	if err := r.conn(ctx).
		Where("receipt_id = ?", receiptID).
		Order("applied_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainApplications(modelList), nil
}

// FindBySaleID returns all applications of a sale, oldest first
func (r *GormApplicationRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]finance.PaymentApplication, error) {
	var modelList []models.PaymentApplicationModel
	if err := r.conn(ctx).
		Where("sale_id = ?", saleID).
		Order("applied_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainApplications(modelList), nil
}

// SumCollectedBySaleID sums application amounts across all three buckets for
// the sale. Applications of voided receipts are excluded at query time.
func (r *GormApplicationRepository) SumCollectedBySaleID(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.conn(ctx).
		Model(&models.PaymentApplicationModel{}).
		Select("COALESCE(SUM(payment_applications.amount), 0)").
		Joins("JOIN payment_receipts ON payment_receipts.id = payment_applications.receipt_id").
		Where("payment_applications.sale_id = ?", saleID).
		Where("payment_receipts.status <> ?", finance.ReceiptStatusVoided).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func toDomainApplications(modelList []models.PaymentApplicationModel) []finance.PaymentApplication {
	result := make([]finance.PaymentApplication, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result
}

// Ensure GormApplicationRepository implements ApplicationRepository
var _ finance.ApplicationRepository = (*GormApplicationRepository)(nil)
