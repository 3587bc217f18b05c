package persistence

import (
	"context"
	"errors"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentPlanRepository implements PaymentPlanRepository using GORM
type GormPaymentPlanRepository struct {
	db *gorm.DB
}

// NewGormPaymentPlanRepository creates a new GormPaymentPlanRepository
func NewGormPaymentPlanRepository(db *gorm.DB) *GormPaymentPlanRepository {
	return &GormPaymentPlanRepository{db: db}
}

func (r *GormPaymentPlanRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// FindBySaleID finds the plan of a sale
func (r *GormPaymentPlanRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*sales.PaymentPlan, error) {
	var model models.PaymentPlanModel
	if err := r.conn(ctx).
		Where("sale_id = ?", saleID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a payment plan
func (r *GormPaymentPlanRepository) Save(ctx context.Context, plan *sales.PaymentPlan) error {
	model := models.PaymentPlanModelFromDomain(plan)
	return r.conn(ctx).Save(model).Error
}

// DeleteBySaleID removes the plan of a sale (schedule regeneration)
func (r *GormPaymentPlanRepository) DeleteBySaleID(ctx context.Context, saleID uuid.UUID) error {
	return r.conn(ctx).
		Where("sale_id = ?", saleID).
		Delete(&models.PaymentPlanModel{}).Error
}

// Ensure GormPaymentPlanRepository implements PaymentPlanRepository
var _ sales.PaymentPlanRepository = (*GormPaymentPlanRepository)(nil)
