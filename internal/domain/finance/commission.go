package finance

import (
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var pointTwo = decimal.NewFromFloat(0.20)

// LiquidationSnapshot is the fresh computation of a (sale, advisor)
// commission position from the current ledger state plus the persisted
// high-water mark. Money figures are quantized to 2 decimals half-up, the
// ratio to 4 decimals.
type LiquidationSnapshot struct {
	Base20              decimal.Decimal `json:"base_20"`
	CumulativeCollected decimal.Decimal `json:"cumulative_collected"`
	LiquidationPct      decimal.Decimal `json:"liquidation_pct"` // Fraction in [0, 1]
	TotalCommission     decimal.Decimal `json:"total_commission"`
	LiquidableAmount    decimal.Decimal `json:"liquidable_amount"`
	AlreadyLiquidated   decimal.Decimal `json:"already_liquidated"`
	PendingAmount       decimal.Decimal `json:"pending_amount"`
	Base20Warning       bool            `json:"base_20_warning"` // base_20 == 0, ratio forced to 0
	AuditFlag           bool            `json:"audit_flag"`      // High-water mark above fresh liquidable
}

// LiquidationEntry is the immutable history snapshot written by each
// successful liquidation.
type LiquidationEntry struct {
	ID                  uuid.UUID       `json:"id"`
	LiquidationID       uuid.UUID       `json:"liquidation_id"`
	SaleID              uuid.UUID       `json:"sale_id"`
	AdvisorID           uuid.UUID       `json:"advisor_id"`
	LiquidationPct      decimal.Decimal `json:"liquidation_pct"`
	Base20              decimal.Decimal `json:"base_20"`
	CumulativeCollected decimal.Decimal `json:"cumulative_collected"`
	TotalCommission     decimal.Decimal `json:"total_commission"`
	LiquidableAmount    decimal.Decimal `json:"liquidable_amount"`
	AmountLiquidated    decimal.Decimal `json:"amount_liquidated"` // Delta paid out by this entry
	LiquidatedAt        time.Time       `json:"liquidated_at"`
}

// CommissionLiquidation is the per (sale, advisor) aggregate holding the
// monotonic high-water mark of liquidated commission. Everything else in
// the snapshot is recomputed from ledger state on every call.
type CommissionLiquidation struct {
	shared.AuditedAggregateRoot
	SaleID            uuid.UUID       `json:"sale_id"`
	AdvisorID         uuid.UUID       `json:"advisor_id"`
	AdvisorName       string          `json:"advisor_name"`
	CommissionRate    decimal.Decimal `json:"commission_rate"` // Fraction of sale value
	AlreadyLiquidated decimal.Decimal `json:"already_liquidated"`
}

// NewCommissionLiquidation creates the liquidation aggregate for an advisor
// of record on a sale
func NewCommissionLiquidation(saleID, advisorID uuid.UUID, advisorName string, commissionRate decimal.Decimal) (*CommissionLiquidation, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewValidationError("Sale ID cannot be empty")
	}
	if advisorID == uuid.Nil {
		return nil, shared.NewValidationError("Advisor ID cannot be empty")
	}
	if advisorName == "" {
		return nil, shared.NewValidationError("Advisor name is required")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewValidationError("Commission rate must be a fraction between 0 and 1")
	}

	return &CommissionLiquidation{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		SaleID:               saleID,
		AdvisorID:            advisorID,
		AdvisorName:          advisorName,
		CommissionRate:       commissionRate,
		AlreadyLiquidated:    decimal.Zero,
	}, nil
}

// ComputeSnapshot derives the liquidation position from the sale value and
// the cumulative non-voided collections (all three buckets count as
// recaudo):
//
//	base_20          = sale_value * 0.20
//	pct              = min(collected / base_20, 1)       (0 when base_20 == 0)
//	total_commission = sale_value * commission_rate
//	liquidable       = total_commission * pct
//	pending          = max(liquidable - already_liquidated, 0)
func (cl *CommissionLiquidation) ComputeSnapshot(saleValue, cumulativeCollected decimal.Decimal) LiquidationSnapshot {
	snap := LiquidationSnapshot{
		Base20:              saleValue.Mul(pointTwo).Round(2),
		CumulativeCollected: cumulativeCollected.Round(2),
		AlreadyLiquidated:   cl.AlreadyLiquidated,
	}

	if snap.Base20.IsZero() {
		snap.LiquidationPct = decimal.Zero
		snap.Base20Warning = true
	} else {
		pct := snap.CumulativeCollected.Div(snap.Base20).Round(4)
		snap.LiquidationPct = decimal.Min(pct, decimal.NewFromInt(1))
		if snap.LiquidationPct.IsNegative() {
			snap.LiquidationPct = decimal.Zero
		}
	}

	snap.TotalCommission = saleValue.Mul(cl.CommissionRate).Round(2)
	snap.LiquidableAmount = snap.TotalCommission.Mul(snap.LiquidationPct).Round(2)

	snap.PendingAmount = snap.LiquidableAmount.Sub(cl.AlreadyLiquidated)
	if snap.PendingAmount.IsNegative() {
		// A voided receipt can pull the fresh liquidable below the stored
		// high-water mark; surface it, never auto-reverse.
		snap.PendingAmount = decimal.Zero
		snap.AuditFlag = true
	}

	return snap
}

// Liquidate raises the high-water mark to the snapshot's liquidable amount
// and returns the immutable history entry. When nothing is pending it
// returns (nil, nil): NothingToLiquidate is an outcome, not an error, and
// the mark is left untouched.
func (cl *CommissionLiquidation) Liquidate(snapshot LiquidationSnapshot, at time.Time) (*LiquidationEntry, error) {
	if !snapshot.PendingAmount.IsPositive() {
		return nil, nil
	}
	if snapshot.LiquidableAmount.LessThan(cl.AlreadyLiquidated) {
		return nil, shared.NewDomainError("INVALID_STATE", "Liquidable amount below the stored high-water mark")
	}

	delta := snapshot.PendingAmount
	// Raise the mark to the liquidable figure, not by the delta, so
	// repeated liquidations never compound rounding drift.
	cl.AlreadyLiquidated = snapshot.LiquidableAmount
	cl.UpdatedAt = time.Now().UTC()
	cl.IncrementVersion()

	entry := &LiquidationEntry{
		ID:                  uuid.New(),
		LiquidationID:       cl.ID,
		SaleID:              cl.SaleID,
		AdvisorID:           cl.AdvisorID,
		LiquidationPct:      snapshot.LiquidationPct,
		Base20:              snapshot.Base20,
		CumulativeCollected: snapshot.CumulativeCollected,
		TotalCommission:     snapshot.TotalCommission,
		LiquidableAmount:    snapshot.LiquidableAmount,
		AmountLiquidated:    delta,
		LiquidatedAt:        at,
	}

	cl.AddDomainEvent(NewCommissionLiquidatedEvent(cl, entry))

	return entry, nil
}
