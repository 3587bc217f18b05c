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

// GormTreasuryRequestRepository implements TreasuryRequestRepository using GORM
type GormTreasuryRequestRepository struct {
	db *gorm.DB
}

// NewGormTreasuryRequestRepository creates a new GormTreasuryRequestRepository
func NewGormTreasuryRequestRepository(db *gorm.DB) *GormTreasuryRequestRepository {
	return &GormTreasuryRequestRepository{db: db}
}

func (r *GormTreasuryRequestRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// FindByID finds a treasury request by ID
func (r *GormTreasuryRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.TreasuryRequest, error) {
	var model models.TreasuryRequestModel
	if err := r.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a request by its external request id (idempotent
// registration)
func (r *GormTreasuryRequestRepository) FindByExternalID(ctx context.Context, externalRequestID string) (*finance.TreasuryRequest, error) {
	var model models.TreasuryRequestModel
	if err := r.conn(ctx).
		Where("external_request_id = ?", externalRequestID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a treasury request
func (r *GormTreasuryRequestRepository) Save(ctx context.Context, request *finance.TreasuryRequest) error {
	model := models.TreasuryRequestModelFromDomain(request)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormTreasuryRequestRepository) SaveWithLock(ctx context.Context, request *finance.TreasuryRequest) error {
	model := models.TreasuryRequestModelFromDomain(request)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.TreasuryRequestModel{}).
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

		result := tx.Model(&models.TreasuryRequestModel{}).
			Where("id = ? AND version = ?", model.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":            model.Status,
				"alerts":            model.Alerts,
				"form_token":        model.FormToken,
				"linked_receipt_id": model.LinkedReceiptID,
				"validated_at":      model.ValidatedAt,
				"confirmed_at":      model.ConfirmedAt,
				"confirmed_by":      model.ConfirmedBy,
				"version":           model.Version,
				"updated_at":        model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		request.Version = model.Version
		request.UpdatedAt = model.UpdatedAt
		return nil
	})
}

// Ensure GormTreasuryRequestRepository implements TreasuryRequestRepository
var _ finance.TreasuryRequestRepository = (*GormTreasuryRequestRepository)(nil)
