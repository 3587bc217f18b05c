package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func (r *GormSaleRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// FindByID finds a sale by ID, advisors included
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var model models.SaleModel
	if err := r.conn(ctx).
		Preload("Advisors").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleNumber finds a sale by its platform sale number
func (r *GormSaleRepository) FindBySaleNumber(ctx context.Context, saleNumber string) (*sales.Sale, error) {
	var model models.SaleModel
	if err := r.conn(ctx).
		Preload("Advisors").
		Where("sale_number = ?", saleNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds sales with filtering
func (r *GormSaleRepository) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	var modelList []models.SaleModel
	query := r.applyFilter(r.conn(ctx).Model(&models.SaleModel{}).Preload("Advisors"), filter)

	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]sales.Sale, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result, nil
}

// FindApprovedWithAdvisors finds approved sales that have at least one
// advisor of record, for the liquidation queue
func (r *GormSaleRepository) FindApprovedWithAdvisors(ctx context.Context) ([]sales.Sale, error) {
	var modelList []models.SaleModel
	if err := r.conn(ctx).
		Model(&models.SaleModel{}).
		Preload("Advisors").
		Where("status = ?", sales.SaleStatusApproved).
		Where("id IN (?)", r.conn(ctx).Model(&models.SaleAdvisorModel{}).Select("sale_id")).
		Order("approved_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]sales.Sale, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result, nil
}

// Save creates or updates a sale and its advisors
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	model := models.SaleModelFromDomain(sale)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Advisors").Save(model).Error; err != nil {
			return err
		}
		return r.saveAdvisors(tx, model)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	model := models.SaleModelFromDomain(sale)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.SaleModel{}).
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

		result := tx.Model(&models.SaleModel{}).
			Where("id = ? AND version = ?", model.ID, currentVersion).
			Updates(map[string]interface{}{
				"sale_number": model.SaleNumber,
				"buyer_name":  model.BuyerName,
				"sale_value":  model.SaleValue,
				"status":      model.Status,
				"approved_at": model.ApprovedAt,
				"version":     model.Version,
				"updated_at":  model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		sale.Version = model.Version
		sale.UpdatedAt = model.UpdatedAt

		return r.saveAdvisors(tx, model)
	})
}

// saveAdvisors replaces the sale's advisor-of-record rows with the current set
func (r *GormSaleRepository) saveAdvisors(tx *gorm.DB, model *models.SaleModel) error {
	currentIDs := make([]uuid.UUID, len(model.Advisors))
	for i, a := range model.Advisors {
		currentIDs[i] = a.ID
	}

	if len(currentIDs) > 0 {
		if err := tx.Where("sale_id = ? AND id NOT IN ?", model.ID, currentIDs).
			Delete(&models.SaleAdvisorModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("sale_id = ?", model.ID).
			Delete(&models.SaleAdvisorModel{}).Error; err != nil {
			return err
		}
	}

	for i := range model.Advisors {
		model.Advisors[i].SaleID = model.ID
		if err := tx.Save(&model.Advisors[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Count counts sales matching the filter
func (r *GormSaleRepository) Count(ctx context.Context, filter sales.SaleFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.conn(ctx).Model(&models.SaleModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormSaleRepository) applyFilter(query *gorm.DB, filter sales.SaleFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, SaleSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSaleRepository) applyFilterWithoutPagination(query *gorm.DB, filter sales.SaleFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.TrimSpace(filter.Search) + "%"
		query = query.Where("sale_number ILIKE ? OR buyer_name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AdvisorID != nil {
		query = query.Where("id IN (?)",
			r.db.Model(&models.SaleAdvisorModel{}).Select("sale_id").Where("advisor_id = ?", *filter.AdvisorID))
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	return query
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)
