package models

import (
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate root.
type SaleModel struct {
	AuditedAggregateModel
	SaleNumber string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	BuyerName  string             `gorm:"type:varchar(200);not null"`
	SaleValue  decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Status     sales.SaleStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ApprovedAt *time.Time         `gorm:"index"`
	Advisors   []SaleAdvisorModel `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale entity.
func (m *SaleModel) ToDomain() *sales.Sale {
	s := &sales.Sale{
		SaleNumber: m.SaleNumber,
		BuyerName:  m.BuyerName,
		SaleValue:  m.SaleValue,
		Status:     m.Status,
		ApprovedAt: m.ApprovedAt,
		Advisors:   make([]sales.SaleAdvisor, len(m.Advisors)),
	}
	m.PopulateAuditedAggregateRoot(&s.AuditedAggregateRoot)
	for i, a := range m.Advisors {
		s.Advisors[i] = *a.ToDomain()
	}
	return s
}

// FromDomain populates the persistence model from a domain Sale entity.
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.FromDomainAuditedAggregateRoot(s.AuditedAggregateRoot)
	m.SaleNumber = s.SaleNumber
	m.BuyerName = s.BuyerName
	m.SaleValue = s.SaleValue
	m.Status = s.Status
	m.ApprovedAt = s.ApprovedAt
	m.Advisors = make([]SaleAdvisorModel, len(s.Advisors))
	for i, a := range s.Advisors {
		m.Advisors[i] = *SaleAdvisorModelFromDomain(&a)
	}
}

// SaleModelFromDomain creates a new persistence model from a domain Sale.
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// SaleAdvisorModel is the persistence model for SaleAdvisor.
type SaleAdvisorModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	SaleID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sale_advisor,priority:1"`
	AdvisorID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sale_advisor,priority:2"`
	AdvisorName    string          `gorm:"type:varchar(200);not null"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(8,6);not null"`
}

// TableName returns the table name for GORM
func (SaleAdvisorModel) TableName() string {
	return "sale_advisors"
}

// ToDomain converts the persistence model to a domain SaleAdvisor.
func (m *SaleAdvisorModel) ToDomain() *sales.SaleAdvisor {
	return &sales.SaleAdvisor{
		ID:             m.ID,
		SaleID:         m.SaleID,
		AdvisorID:      m.AdvisorID,
		AdvisorName:    m.AdvisorName,
		CommissionRate: m.CommissionRate,
	}
}

// FromDomain populates the persistence model from a domain SaleAdvisor.
func (m *SaleAdvisorModel) FromDomain(a *sales.SaleAdvisor) {
	m.ID = a.ID
	m.SaleID = a.SaleID
	m.AdvisorID = a.AdvisorID
	m.AdvisorName = a.AdvisorName
	m.CommissionRate = a.CommissionRate
}

// SaleAdvisorModelFromDomain creates a new persistence model from domain.
func SaleAdvisorModelFromDomain(a *sales.SaleAdvisor) *SaleAdvisorModel {
	m := &SaleAdvisorModel{}
	m.FromDomain(a)
	return m
}

// PaymentPlanModel is the persistence model for the PaymentPlan aggregate root.
type PaymentPlanModel struct {
	AggregateModel
	SaleID               uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex"`
	PriceTotal           decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	InitialAmount        decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	InitialInstallments  int                      `gorm:"not null"`
	InitialPeriodicity   sales.Periodicity        `gorm:"type:varchar(20);not null"`
	FinancedAmount       decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	FinancedInstallments int                      `gorm:"not null"`
	MonthlyRate          decimal.Decimal          `gorm:"type:decimal(10,6);not null"`
	Amortization         sales.AmortizationSystem `gorm:"type:varchar(20);not null"`
	MoraRateMonthly      decimal.Decimal          `gorm:"type:decimal(10,6);not null"`
	GraceDays            int                      `gorm:"not null"`
	StartDate            time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentPlanModel) TableName() string {
	return "payment_plans"
}

// ToDomain converts the persistence model to a domain PaymentPlan entity.
func (m *PaymentPlanModel) ToDomain() *sales.PaymentPlan {
	return &sales.PaymentPlan{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		SaleID:               m.SaleID,
		PriceTotal:           m.PriceTotal,
		InitialAmount:        m.InitialAmount,
		InitialInstallments:  m.InitialInstallments,
		InitialPeriodicity:   m.InitialPeriodicity,
		FinancedAmount:       m.FinancedAmount,
		FinancedInstallments: m.FinancedInstallments,
		MonthlyRate:          m.MonthlyRate,
		Amortization:         m.Amortization,
		MoraRateMonthly:      m.MoraRateMonthly,
		GraceDays:            m.GraceDays,
		StartDate:            m.StartDate,
	}
}

// FromDomain populates the persistence model from a domain PaymentPlan entity.
func (m *PaymentPlanModel) FromDomain(p *sales.PaymentPlan) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.SaleID = p.SaleID
	m.PriceTotal = p.PriceTotal
	m.InitialAmount = p.InitialAmount
	m.InitialInstallments = p.InitialInstallments
	m.InitialPeriodicity = p.InitialPeriodicity
	m.FinancedAmount = p.FinancedAmount
	m.FinancedInstallments = p.FinancedInstallments
	m.MonthlyRate = p.MonthlyRate
	m.Amortization = p.Amortization
	m.MoraRateMonthly = p.MoraRateMonthly
	m.GraceDays = p.GraceDays
	m.StartDate = p.StartDate
}

// PaymentPlanModelFromDomain creates a new persistence model from domain.
func PaymentPlanModelFromDomain(p *sales.PaymentPlan) *PaymentPlanModel {
	m := &PaymentPlanModel{}
	m.FromDomain(p)
	return m
}

// InstallmentModel is the persistence model for Installment.
type InstallmentModel struct {
	BaseModel
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_installment_sale_due,priority:1;uniqueIndex:idx_installment_sale_seq,priority:1"`
	Sequence      string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_installment_sale_seq,priority:2"`
	Number        int             `gorm:"not null"`
	DueDate       time.Time       `gorm:"not null;index:idx_installment_sale_due,priority:2"`
	MoraDue       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MoraPaid      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	InterestDue   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	InterestPaid  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PrincipalDue  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PrincipalPaid decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment.
func (m *InstallmentModel) ToDomain() *sales.Installment {
	return &sales.Installment{
		BaseEntity:    m.BaseModel.ToDomain(),
		SaleID:        m.SaleID,
		Sequence:      m.Sequence,
		Number:        m.Number,
		DueDate:       m.DueDate,
		MoraDue:       m.MoraDue,
		MoraPaid:      m.MoraPaid,
		InterestDue:   m.InterestDue,
		InterestPaid:  m.InterestPaid,
		PrincipalDue:  m.PrincipalDue,
		PrincipalPaid: m.PrincipalPaid,
	}
}

// FromDomain populates the persistence model from a domain Installment.
func (m *InstallmentModel) FromDomain(i *sales.Installment) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.SaleID = i.SaleID
	m.Sequence = i.Sequence
	m.Number = i.Number
	m.DueDate = i.DueDate
	m.MoraDue = i.MoraDue
	m.MoraPaid = i.MoraPaid
	m.InterestDue = i.InterestDue
	m.InterestPaid = i.InterestPaid
	m.PrincipalDue = i.PrincipalDue
	m.PrincipalPaid = i.PrincipalPaid
}

// InstallmentModelFromDomain creates a new persistence model from domain.
func InstallmentModelFromDomain(i *sales.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}

// SaleLogModel is the persistence model for SaleLog audit entries.
type SaleLogModel struct {
	BaseModel
	SaleID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	Action   sales.SaleLogAction `gorm:"type:varchar(40);not null;index"`
	Message  string              `gorm:"type:varchar(500);not null"`
	Metadata JSONMap             `gorm:"type:jsonb;default:'{}'"`
	ActorID  *uuid.UUID          `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (SaleLogModel) TableName() string {
	return "sale_logs"
}

// ToDomain converts the persistence model to a domain SaleLog.
func (m *SaleLogModel) ToDomain() *sales.SaleLog {
	return &sales.SaleLog{
		BaseEntity: m.BaseModel.ToDomain(),
		SaleID:     m.SaleID,
		Action:     m.Action,
		Message:    m.Message,
		Metadata:   m.Metadata,
		ActorID:    m.ActorID,
	}
}

// FromDomain populates the persistence model from a domain SaleLog.
func (m *SaleLogModel) FromDomain(l *sales.SaleLog) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.SaleID = l.SaleID
	m.Action = l.Action
	m.Message = l.Message
	m.Metadata = JSONMap(l.Metadata)
	m.ActorID = l.ActorID
}

// SaleLogModelFromDomain creates a new persistence model from domain.
func SaleLogModelFromDomain(l *sales.SaleLog) *SaleLogModel {
	m := &SaleLogModel{}
	m.FromDomain(l)
	return m
}
