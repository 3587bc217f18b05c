package persistence

import (
	"context"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleLogRepository implements SaleLogRepository using GORM
type GormSaleLogRepository struct {
	db *gorm.DB
}

// NewGormSaleLogRepository creates a new GormSaleLogRepository
func NewGormSaleLogRepository(db *gorm.DB) *GormSaleLogRepository {
	return &GormSaleLogRepository{db: db}
}

func (r *GormSaleLogRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// Append persists a new audit entry. Entries are insert-only.
func (r *GormSaleLogRepository) Append(ctx context.Context, entry *sales.SaleLog) error {
	model := models.SaleLogModelFromDomain(entry)
	return r.conn(ctx).Create(model).Error
}

// FindBySaleID returns audit entries for a sale, newest first
func (r *GormSaleLogRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID, filter sales.SaleLogFilter) ([]sales.SaleLog, error) {
	var modelList []models.SaleLogModel
	query := r.applyFilter(
		r.conn(ctx).Model(&models.SaleLogModel{}).Where("sale_id = ?", saleID),
		filter,
	)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]sales.SaleLog, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result, nil
}

// CountBySaleID counts audit entries for a sale
func (r *GormSaleLogRepository) CountBySaleID(ctx context.Context, saleID uuid.UUID, filter sales.SaleLogFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.conn(ctx).Model(&models.SaleLogModel{}).Where("sale_id = ?", saleID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormSaleLogRepository) applyFilter(query *gorm.DB, filter sales.SaleLogFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, SaleLogSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

func (r *GormSaleLogRepository) applyFilterWithoutPagination(query *gorm.DB, filter sales.SaleLogFilter) *gorm.DB {
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	return query
}

// Ensure GormSaleLogRepository implements SaleLogRepository
var _ sales.SaleLogRepository = (*GormSaleLogRepository)(nil)
