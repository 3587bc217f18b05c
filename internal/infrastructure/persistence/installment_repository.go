package persistence

import (
	"context"
	"errors"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// scheduleOrder is the canonical installment ordering: due date ascending
// with the schedule number breaking ties. Number follows the CI/FN sequence,
// so ordering by it avoids the lexicographic trap of "FN10" < "FN2".
const scheduleOrder = "due_date ASC, number ASC"

// outstandingCondition matches installments that still carry a balance in
// any bucket.
const outstandingCondition = "(mora_due - mora_paid) + (interest_due - interest_paid) + (principal_due - principal_paid) > 0"

// GormInstallmentRepository implements InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

func (r *GormInstallmentRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// FindByID finds an installment by ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Installment, error) {
	var model models.InstallmentModel
	if err := r.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleID returns the full schedule of a sale in canonical order
func (r *GormInstallmentRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]*sales.Installment, error) {
	var modelList []models.InstallmentModel
	if err := r.conn(ctx).
		Where("sale_id = ?", saleID).
		Order(scheduleOrder).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainInstallments(modelList), nil
}

// FindOutstandingBySaleID returns the schedule restricted to installments
// with balance > 0, in canonical order
func (r *GormInstallmentRepository) FindOutstandingBySaleID(ctx context.Context, saleID uuid.UUID) ([]*sales.Installment, error) {
	var modelList []models.InstallmentModel
	if err := r.conn(ctx).
		Where("sale_id = ?", saleID).
		Where(outstandingCondition).
		Order(scheduleOrder).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainInstallments(modelList), nil
}

// Save creates or updates a single installment
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *sales.Installment) error {
	model := models.InstallmentModelFromDomain(installment)
	return r.conn(ctx).Save(model).Error
}

// SaveAll persists a batch of installments
func (r *GormInstallmentRepository) SaveAll(ctx context.Context, installments []*sales.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	modelList := make([]models.InstallmentModel, len(installments))
	for i, inst := range installments {
		modelList[i] = *models.InstallmentModelFromDomain(inst)
	}
	return r.conn(ctx).Save(&modelList).Error
}

// DeleteBySaleID removes a sale's schedule (regeneration while unpaid)
func (r *GormInstallmentRepository) DeleteBySaleID(ctx context.Context, saleID uuid.UUID) error {
	return r.conn(ctx).
		Where("sale_id = ?", saleID).
		Delete(&models.InstallmentModel{}).Error
}

// AnyPaidBySaleID reports whether any installment of the sale has received
// a payment
func (r *GormInstallmentRepository) AnyPaidBySaleID(ctx context.Context, saleID uuid.UUID) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.InstallmentModel{}).
		Where("sale_id = ?", saleID).
		Where("mora_paid > 0 OR interest_paid > 0 OR principal_paid > 0").
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toDomainInstallments(modelList []models.InstallmentModel) []*sales.Installment {
	result := make([]*sales.Installment, len(modelList))
	for i := range modelList {
		result[i] = modelList[i].ToDomain()
	}
	return result
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ sales.InstallmentRepository = (*GormInstallmentRepository)(nil)
