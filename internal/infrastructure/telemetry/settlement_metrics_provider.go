// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormPortfolioMetricsProvider implements PortfolioMetricsProvider using GORM.
// It queries the settlement tables directly for aggregated metrics.
type GormPortfolioMetricsProvider struct {
	db *gorm.DB
}

// NewGormPortfolioMetricsProvider creates a new GormPortfolioMetricsProvider.
func NewGormPortfolioMetricsProvider(db *gorm.DB) *GormPortfolioMetricsProvider {
	return &GormPortfolioMetricsProvider{db: db}
}

// GetMoraOutstanding returns the total unpaid mora across all schedules.
func (p *GormPortfolioMetricsProvider) GetMoraOutstanding(ctx context.Context) (float64, error) {
	var total float64
	err := p.db.WithContext(ctx).
		Table("installments").
		Select("COALESCE(SUM(mora_due - mora_paid), 0)").
		Where("mora_due > mora_paid").
		Scan(&total).Error

	return total, err
}

// GetUnallocatedAmount returns the total receipt surplus not yet applied.
func (p *GormPortfolioMetricsProvider) GetUnallocatedAmount(ctx context.Context) (float64, error) {
	var total float64
	err := p.db.WithContext(ctx).
		Table("payment_receipts").
		Select("COALESCE(SUM(amount - allocated_amount), 0)").
		Where("status <> ? AND amount > allocated_amount", "VOIDED").
		Scan(&total).Error

	return total, err
}

// GetOpenTreasuryRequestCount returns the number of treasury requests
// that have not reached a terminal state.
func (p *GormPortfolioMetricsProvider) GetOpenTreasuryRequestCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("treasury_requests").
		Where("status NOT IN ?", []string{"COMPLETED", "BLOCKED"}).
		Count(&count).Error

	return count, err
}
