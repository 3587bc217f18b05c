package finance

import (
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionLiquidatedEvent is raised when a liquidation raises the
// high-water mark and writes a history entry
type CommissionLiquidatedEvent struct {
	shared.BaseDomainEvent
	LiquidationID    uuid.UUID       `json:"liquidation_id"`
	SaleID           uuid.UUID       `json:"sale_id"`
	AdvisorID        uuid.UUID       `json:"advisor_id"`
	AdvisorName      string          `json:"advisor_name"`
	LiquidationPct   decimal.Decimal `json:"liquidation_pct"`
	AmountLiquidated decimal.Decimal `json:"amount_liquidated"`
	HighWaterMark    decimal.Decimal `json:"high_water_mark"`
	LiquidatedAt     time.Time       `json:"liquidated_at"`
}

// EventType returns the event type name
func (e *CommissionLiquidatedEvent) EventType() string {
	return "CommissionLiquidated"
}

// NewCommissionLiquidatedEvent creates a new CommissionLiquidatedEvent
func NewCommissionLiquidatedEvent(cl *CommissionLiquidation, entry *LiquidationEntry) *CommissionLiquidatedEvent {
	return &CommissionLiquidatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("CommissionLiquidated", "CommissionLiquidation", cl.ID),
		LiquidationID:    cl.ID,
		SaleID:           cl.SaleID,
		AdvisorID:        cl.AdvisorID,
		AdvisorName:      cl.AdvisorName,
		LiquidationPct:   entry.LiquidationPct,
		AmountLiquidated: entry.AmountLiquidated,
		HighWaterMark:    cl.AlreadyLiquidated,
		LiquidatedAt:     entry.LiquidatedAt,
	}
}
