package sales

import (
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleSyncedEvent is raised when sale facts are created or refreshed from
// the platform feed
type SaleSyncedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID       `json:"sale_id"`
	SaleNumber string          `json:"sale_number"`
	BuyerName  string          `json:"buyer_name"`
	SaleValue  decimal.Decimal `json:"sale_value"`
	Status     SaleStatus      `json:"status"`
	Created    bool            `json:"created"`
}

// EventType returns the event type name
func (e *SaleSyncedEvent) EventType() string {
	return "SaleSynced"
}

// NewSaleSyncedEvent creates a new SaleSyncedEvent
func NewSaleSyncedEvent(s *Sale, created bool) *SaleSyncedEvent {
	return &SaleSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("SaleSynced", "Sale", s.ID),
		SaleID:          s.ID,
		SaleNumber:      s.SaleNumber,
		BuyerName:       s.BuyerName,
		SaleValue:       s.SaleValue,
		Status:          s.Status,
		Created:         created,
	}
}

// SaleApprovedEvent is raised when a sale transitions to approved status
type SaleApprovedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID       `json:"sale_id"`
	SaleNumber string          `json:"sale_number"`
	SaleValue  decimal.Decimal `json:"sale_value"`
	ApprovedAt time.Time       `json:"approved_at"`
}

// EventType returns the event type name
func (e *SaleApprovedEvent) EventType() string {
	return "SaleApproved"
}

// NewSaleApprovedEvent creates a new SaleApprovedEvent
func NewSaleApprovedEvent(s *Sale) *SaleApprovedEvent {
	approvedAt := time.Now().UTC()
	if s.ApprovedAt != nil {
		approvedAt = *s.ApprovedAt
	}
	return &SaleApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("SaleApproved", "Sale", s.ID),
		SaleID:          s.ID,
		SaleNumber:      s.SaleNumber,
		SaleValue:       s.SaleValue,
		ApprovedAt:      approvedAt,
	}
}

// ScheduleGeneratedEvent is raised when a payment plan materializes its
// installment schedule
type ScheduleGeneratedEvent struct {
	shared.BaseDomainEvent
	SaleID           uuid.UUID       `json:"sale_id"`
	PlanID           uuid.UUID       `json:"plan_id"`
	InstallmentCount int             `json:"installment_count"`
	PriceTotal       decimal.Decimal `json:"price_total"`
	Amortization     string          `json:"amortization"`
}

// EventType returns the event type name
func (e *ScheduleGeneratedEvent) EventType() string {
	return "ScheduleGenerated"
}

// NewScheduleGeneratedEvent creates a new ScheduleGeneratedEvent
func NewScheduleGeneratedEvent(p *PaymentPlan, installmentCount int) *ScheduleGeneratedEvent {
	return &ScheduleGeneratedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("ScheduleGenerated", "PaymentPlan", p.ID),
		SaleID:           p.SaleID,
		PlanID:           p.ID,
		InstallmentCount: installmentCount,
		PriceTotal:       p.PriceTotal,
		Amortization:     p.Amortization.String(),
	}
}

// MoraAssessedEvent is raised when a mora assessment raises at least one
// installment's mora bucket
type MoraAssessedEvent struct {
	shared.BaseDomainEvent
	SaleID        uuid.UUID       `json:"sale_id"`
	AsOf          time.Time       `json:"as_of"`
	RaisedCount   int             `json:"raised_count"`
	TotalAssessed decimal.Decimal `json:"total_assessed"`
}

// EventType returns the event type name
func (e *MoraAssessedEvent) EventType() string {
	return "MoraAssessed"
}

// NewMoraAssessedEvent creates a new MoraAssessedEvent
func NewMoraAssessedEvent(saleID uuid.UUID, asOf time.Time, raisedCount int, totalAssessed decimal.Decimal) *MoraAssessedEvent {
	return &MoraAssessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("MoraAssessed", "Sale", saleID),
		SaleID:          saleID,
		AsOf:            asOf,
		RaisedCount:     raisedCount,
		TotalAssessed:   totalAssessed,
	}
}
