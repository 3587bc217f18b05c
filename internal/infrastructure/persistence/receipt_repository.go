package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

func (r *GormReceiptRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// FindByID finds a receipt by ID
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentReceipt, error) {
	var model models.PaymentReceiptModel
	if err := r.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFingerprint finds a non-voided receipt of the sale with the given
// fingerprint (duplicate detection)
func (r *GormReceiptRepository) FindByFingerprint(ctx context.Context, saleID uuid.UUID, fingerprint string) (*finance.PaymentReceipt, error) {
	var model models.PaymentReceiptModel
	if err := r.conn(ctx).
		Where("sale_id = ? AND fingerprint = ? AND status <> ?", saleID, fingerprint, finance.ReceiptStatusVoided).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleID finds receipts of a sale with filtering
func (r *GormReceiptRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID, filter finance.ReceiptFilter) ([]finance.PaymentReceipt, error) {
	var modelList []models.PaymentReceiptModel
	query := r.applyFilter(
		r.conn(ctx).Model(&models.PaymentReceiptModel{}).Where("sale_id = ?", saleID),
		filter,
	)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]finance.PaymentReceipt, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result, nil
}

// FindWithSurplusBySaleID finds allocated, non-voided receipts of a sale that
// still hold standing credit, oldest received first
func (r *GormReceiptRepository) FindWithSurplusBySaleID(ctx context.Context, saleID uuid.UUID) ([]*finance.PaymentReceipt, error) {
	var modelList []models.PaymentReceiptModel
	if err := r.conn(ctx).
		Where("sale_id = ? AND status = ? AND surplus > 0", saleID, finance.ReceiptStatusAllocated).
		Order("received_at ASC, created_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]*finance.PaymentReceipt, len(modelList))
	for i := range modelList {
		result[i] = modelList[i].ToDomain()
	}
	return result, nil
}

// AnyBySaleID reports whether the sale has any non-voided receipt
func (r *GormReceiptRepository) AnyBySaleID(ctx context.Context, saleID uuid.UUID) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.PaymentReceiptModel{}).
		Where("sale_id = ? AND status <> ?", saleID, finance.ReceiptStatusVoided).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a receipt
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *finance.PaymentReceipt) error {
	model := models.PaymentReceiptModelFromDomain(receipt)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormReceiptRepository) SaveWithLock(ctx context.Context, receipt *finance.PaymentReceipt) error {
	model := models.PaymentReceiptModelFromDomain(receipt)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.PaymentReceiptModel{}).
			Where("id = ?", model.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}

		// Domain transitions bump the version in memory before the save, so
		// a stored version at or above ours means another writer got there
		// first.
		if currentVersion > model.Version {
			return shared.ErrConcurrencyConflict
		}
		if currentVersion == model.Version {
			model.Version++
		}
		model.UpdatedAt = time.Now().UTC()

		result := tx.Model(&models.PaymentReceiptModel{}).
			Where("id = ? AND version = ?", model.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":       model.Status,
				"surplus":      model.Surplus,
				"document_key": model.DocumentKey,
				"allocated_at": model.AllocatedAt,
				"voided_at":    model.VoidedAt,
				"void_reason":  model.VoidReason,
				"version":      model.Version,
				"updated_at":   model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		receipt.Version = model.Version
		receipt.UpdatedAt = model.UpdatedAt
		return nil
	})
}

// CountBySaleID counts receipts of a sale
func (r *GormReceiptRepository) CountBySaleID(ctx context.Context, saleID uuid.UUID, filter finance.ReceiptFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.conn(ctx).Model(&models.PaymentReceiptModel{}).Where("sale_id = ?", saleID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormReceiptRepository) applyFilter(query *gorm.DB, filter finance.ReceiptFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ReceiptSortFields, "received_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

func (r *GormReceiptRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.ReceiptFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("received_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("received_at <= ?", *filter.ToDate)
	}
	return query
}

// Ensure GormReceiptRepository implements ReceiptRepository
var _ finance.ReceiptRepository = (*GormReceiptRepository)(nil)
