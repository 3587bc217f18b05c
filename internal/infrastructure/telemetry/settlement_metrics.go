// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SettlementMetrics provides business metrics for the settlement core.
// It tracks receipt intake, allocation activity, commission liquidation,
// and portfolio health (outstanding mora, unallocated funds).
type SettlementMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	receiptIngestedTotal      *Counter
	receiptAmountTotal        *Counter
	allocationTotal           *Counter
	allocationAmountTotal     *Counter
	commissionLiquidatedTotal *Counter
	commissionAmountTotal     *Counter

	// Gauge metrics (point-in-time values)
	moraOutstandingAmount    *FloatGauge
	unallocatedAmount        *FloatGauge
	treasuryOpenRequestCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	portfolioProvider PortfolioMetricsProvider
}

// PortfolioMetricsProvider provides portfolio health data for periodic
// metrics collection. This interface allows the telemetry layer to query
// settlement state without depending on the finance domain directly.
type PortfolioMetricsProvider interface {
	// GetMoraOutstanding returns the total unpaid mora across all schedules
	GetMoraOutstanding(ctx context.Context) (float64, error)

	// GetUnallocatedAmount returns the total receipt surplus not yet applied
	GetUnallocatedAmount(ctx context.Context) (float64, error)

	// GetOpenTreasuryRequestCount returns the number of treasury requests
	// that have not reached a terminal state
	GetOpenTreasuryRequestCount(ctx context.Context) (int64, error)
}

// SettlementMetricsConfig holds configuration for settlement metrics.
type SettlementMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	CollectInterval   time.Duration // Default: 5 minutes
	PortfolioProvider PortfolioMetricsProvider
}

// NewSettlementMetrics creates a new SettlementMetrics instance.
func NewSettlementMetrics(cfg SettlementMetricsConfig) (*SettlementMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SettlementMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		portfolioProvider: cfg.PortfolioProvider,
	}

	var err error

	// Receipt metrics
	sm.receiptIngestedTotal, err = NewCounter(
		cfg.Meter,
		"rojoz_receipt_ingested_total",
		"Total number of payment receipts ingested",
		"{receipts}",
	)
	if err != nil {
		return nil, err
	}

	sm.receiptAmountTotal, err = NewCounter(
		cfg.Meter,
		"rojoz_receipt_amount_total",
		"Total receipt amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Allocation metrics
	sm.allocationTotal, err = NewCounter(
		cfg.Meter,
		"rojoz_allocation_total",
		"Total number of payment applications",
		"{applications}",
	)
	if err != nil {
		return nil, err
	}

	sm.allocationAmountTotal, err = NewCounter(
		cfg.Meter,
		"rojoz_allocation_amount_total",
		"Total allocated amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Commission metrics
	sm.commissionLiquidatedTotal, err = NewCounter(
		cfg.Meter,
		"rojoz_commission_liquidated_total",
		"Total number of commission liquidation entries",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	sm.commissionAmountTotal, err = NewCounter(
		cfg.Meter,
		"rojoz_commission_amount_total",
		"Total liquidated commission amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Portfolio gauge metrics
	sm.moraOutstandingAmount, err = NewFloatGauge(
		cfg.Meter,
		"rojoz_mora_outstanding_amount",
		"Current unpaid mora across all schedules",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	sm.unallocatedAmount, err = NewFloatGauge(
		cfg.Meter,
		"rojoz_unallocated_amount",
		"Current receipt surplus not yet applied to any installment",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	sm.treasuryOpenRequestCount, err = NewGauge(
		cfg.Meter,
		"rojoz_treasury_open_requests",
		"Number of treasury wire requests not yet completed",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Receipt Metrics
// =============================================================================

// RecordReceiptIngested records a receipt intake event. Duplicate submissions
// are counted separately so the dedup rate is visible.
func (sm *SettlementMetrics) RecordReceiptIngested(ctx context.Context, duplicate bool, amount decimal.Decimal) {
	sm.receiptIngestedTotal.Inc(ctx, AttrDuplicate.Bool(duplicate))

	if !duplicate {
		amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
		sm.receiptAmountTotal.Add(ctx, amountCents)
	}
}

// =============================================================================
// Allocation Metrics
// =============================================================================

// RecordAllocation records a payment application against a debt bucket
// (mora, interest or principal).
func (sm *SettlementMetrics) RecordAllocation(ctx context.Context, bucket string, amount decimal.Decimal) {
	sm.allocationTotal.Inc(ctx, AttrAllocationBucket.String(bucket))

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	sm.allocationAmountTotal.Add(ctx, amountCents, AttrAllocationBucket.String(bucket))
}

// =============================================================================
// Commission Metrics
// =============================================================================

// RecordCommissionLiquidated records a commission liquidation entry.
func (sm *SettlementMetrics) RecordCommissionLiquidated(ctx context.Context, amount decimal.Decimal) {
	sm.commissionLiquidatedTotal.Inc(ctx)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	sm.commissionAmountTotal.Add(ctx, amountCents)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects portfolio metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (sm *SettlementMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go sm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (sm *SettlementMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	sm.collectPortfolioMetrics(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic settlement metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic settlement metrics collection")
			return
		case <-ticker.C:
			sm.collectPortfolioMetrics(ctx)
		}
	}
}

// collectPortfolioMetrics collects portfolio gauge metrics.
func (sm *SettlementMetrics) collectPortfolioMetrics(ctx context.Context) {
	if sm.portfolioProvider == nil {
		sm.logger.Debug("No portfolio provider configured, skipping portfolio metrics collection")
		return
	}

	moraOutstanding, err := sm.portfolioProvider.GetMoraOutstanding(ctx)
	if err != nil {
		sm.logger.Warn("Failed to get outstanding mora", zap.Error(err))
	} else {
		sm.moraOutstandingAmount.Record(ctx, moraOutstanding)
	}

	unallocated, err := sm.portfolioProvider.GetUnallocatedAmount(ctx)
	if err != nil {
		sm.logger.Warn("Failed to get unallocated amount", zap.Error(err))
	} else {
		sm.unallocatedAmount.Record(ctx, unallocated)
	}

	openRequests, err := sm.portfolioProvider.GetOpenTreasuryRequestCount(ctx)
	if err != nil {
		sm.logger.Warn("Failed to get open treasury request count", zap.Error(err))
	} else {
		sm.treasuryOpenRequestCount.Record(ctx, openRequests)
	}
}

// Stop stops the periodic collection.
func (sm *SettlementMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSettlementMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
