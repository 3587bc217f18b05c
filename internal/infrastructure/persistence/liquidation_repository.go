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

// GormLiquidationRepository implements LiquidationRepository using GORM
type GormLiquidationRepository struct {
	db *gorm.DB
}

// NewGormLiquidationRepository creates a new GormLiquidationRepository
func NewGormLiquidationRepository(db *gorm.DB) *GormLiquidationRepository {
	return &GormLiquidationRepository{db: db}
}

func (r *GormLiquidationRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// FindBySaleAndAdvisor finds the liquidation aggregate for an advisor on a sale
func (r *GormLiquidationRepository) FindBySaleAndAdvisor(ctx context.Context, saleID, advisorID uuid.UUID) (*finance.CommissionLiquidation, error) {
	var model models.CommissionLiquidationModel
	if err := r.conn(ctx).
		Where("sale_id = ? AND advisor_id = ?", saleID, advisorID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleID finds all liquidation aggregates of a sale
func (r *GormLiquidationRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]finance.CommissionLiquidation, error) {
	var modelList []models.CommissionLiquidationModel
	if err := r.conn(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]finance.CommissionLiquidation, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result, nil
}

// Save creates or updates a liquidation aggregate
func (r *GormLiquidationRepository) Save(ctx context.Context, liquidation *finance.CommissionLiquidation) error {
	model := models.CommissionLiquidationModelFromDomain(liquidation)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormLiquidationRepository) SaveWithLock(ctx context.Context, liquidation *finance.CommissionLiquidation) error {
	model := models.CommissionLiquidationModelFromDomain(liquidation)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.CommissionLiquidationModel{}).
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

		result := tx.Model(&models.CommissionLiquidationModel{}).
			Where("id = ? AND version = ?", model.ID, currentVersion).
			Updates(map[string]interface{}{
				"advisor_name":       model.AdvisorName,
				"commission_rate":    model.CommissionRate,
				"already_liquidated": model.AlreadyLiquidated,
				"version":            model.Version,
				"updated_at":         model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		liquidation.Version = model.Version
		liquidation.UpdatedAt = model.UpdatedAt
		return nil
	})
}

// AppendEntry persists an immutable liquidation history entry
func (r *GormLiquidationRepository) AppendEntry(ctx context.Context, entry *finance.LiquidationEntry) error {
	model := models.LiquidationEntryModelFromDomain(entry)
	return r.conn(ctx).Create(model).Error
}

// FindEntriesBySaleID returns the liquidation history of a sale, newest first
func (r *GormLiquidationRepository) FindEntriesBySaleID(ctx context.Context, saleID uuid.UUID) ([]finance.LiquidationEntry, error) {
	var modelList []models.LiquidationEntryModel
	if err := r.conn(ctx).
		Where("sale_id = ?", saleID).
		Order("liquidated_at DESC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	result := make([]finance.LiquidationEntry, len(modelList))
	for i := range modelList {
		result[i] = *modelList[i].ToDomain()
	}
	return result, nil
}

// Ensure GormLiquidationRepository implements LiquidationRepository
var _ finance.LiquidationRepository = (*GormLiquidationRepository)(nil)
