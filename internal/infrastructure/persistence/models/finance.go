package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentReceiptModel is the persistence model for the PaymentReceipt aggregate root.
type PaymentReceiptModel struct {
	AuditedAggregateModel
	SaleID      uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_receipt_sale_fingerprint,priority:1"`
	Amount      decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PayerRef    string                `gorm:"type:varchar(200);not null"`
	ReceivedAt  time.Time             `gorm:"not null;index"`
	Fingerprint string                `gorm:"type:varchar(64);not null;uniqueIndex:idx_receipt_sale_fingerprint,priority:2"`
	DocumentKey string                `gorm:"type:varchar(300)"`
	Status      finance.ReceiptStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Surplus     decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	AllocatedAt *time.Time
	VoidedAt    *time.Time
	VoidReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentReceiptModel) TableName() string {
	return "payment_receipts"
}

// ToDomain converts the persistence model to a domain PaymentReceipt entity.
func (m *PaymentReceiptModel) ToDomain() *finance.PaymentReceipt {
	r := &finance.PaymentReceipt{
		SaleID:      m.SaleID,
		Amount:      m.Amount,
		PayerRef:    m.PayerRef,
		ReceivedAt:  m.ReceivedAt,
		Fingerprint: m.Fingerprint,
		DocumentKey: m.DocumentKey,
		Status:      m.Status,
		Surplus:     m.Surplus,
		AllocatedAt: m.AllocatedAt,
		VoidedAt:    m.VoidedAt,
		VoidReason:  m.VoidReason,
	}
	m.PopulateAuditedAggregateRoot(&r.AuditedAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain PaymentReceipt entity.
func (m *PaymentReceiptModel) FromDomain(r *finance.PaymentReceipt) {
	m.FromDomainAuditedAggregateRoot(r.AuditedAggregateRoot)
	m.SaleID = r.SaleID
	m.Amount = r.Amount
	m.PayerRef = r.PayerRef
	m.ReceivedAt = r.ReceivedAt
	m.Fingerprint = r.Fingerprint
	m.DocumentKey = r.DocumentKey
	m.Status = r.Status
	m.Surplus = r.Surplus
	m.AllocatedAt = r.AllocatedAt
	m.VoidedAt = r.VoidedAt
	m.VoidReason = r.VoidReason
}

// PaymentReceiptModelFromDomain creates a new persistence model from domain.
func PaymentReceiptModelFromDomain(r *finance.PaymentReceipt) *PaymentReceiptModel {
	m := &PaymentReceiptModel{}
	m.FromDomain(r)
	return m
}

// PaymentApplicationModel is the persistence model for PaymentApplication rows.
type PaymentApplicationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	InstallmentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sequence      string          `gorm:"type:varchar(10);not null"`
	Bucket        sales.Bucket    `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AppliedAt     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PaymentApplicationModel) TableName() string {
	return "payment_applications"
}

// ToDomain converts the persistence model to a domain PaymentApplication.
func (m *PaymentApplicationModel) ToDomain() *finance.PaymentApplication {
	return &finance.PaymentApplication{
		ID:            m.ID,
		ReceiptID:     m.ReceiptID,
		SaleID:        m.SaleID,
		InstallmentID: m.InstallmentID,
		Sequence:      m.Sequence,
		Bucket:        m.Bucket,
		Amount:        m.Amount,
		AppliedAt:     m.AppliedAt,
	}
}

// FromDomain populates the persistence model from a domain PaymentApplication.
func (m *PaymentApplicationModel) FromDomain(a *finance.PaymentApplication) {
	m.ID = a.ID
	m.ReceiptID = a.ReceiptID
	m.SaleID = a.SaleID
	m.InstallmentID = a.InstallmentID
	m.Sequence = a.Sequence
	m.Bucket = a.Bucket
	m.Amount = a.Amount
	m.AppliedAt = a.AppliedAt
}

// PaymentApplicationModelFromDomain creates a new persistence model from domain.
func PaymentApplicationModelFromDomain(a *finance.PaymentApplication) *PaymentApplicationModel {
	m := &PaymentApplicationModel{}
	m.FromDomain(a)
	return m
}

// CommissionLiquidationModel is the persistence model for the
// CommissionLiquidation aggregate root.
type CommissionLiquidationModel struct {
	AuditedAggregateModel
	SaleID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_liquidation_sale_advisor,priority:1"`
	AdvisorID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_liquidation_sale_advisor,priority:2"`
	AdvisorName       string          `gorm:"type:varchar(200);not null"`
	CommissionRate    decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	AlreadyLiquidated decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (CommissionLiquidationModel) TableName() string {
	return "commission_liquidations"
}

// ToDomain converts the persistence model to a domain CommissionLiquidation entity.
func (m *CommissionLiquidationModel) ToDomain() *finance.CommissionLiquidation {
	cl := &finance.CommissionLiquidation{
		SaleID:            m.SaleID,
		AdvisorID:         m.AdvisorID,
		AdvisorName:       m.AdvisorName,
		CommissionRate:    m.CommissionRate,
		AlreadyLiquidated: m.AlreadyLiquidated,
	}
	m.PopulateAuditedAggregateRoot(&cl.AuditedAggregateRoot)
	return cl
}

// FromDomain populates the persistence model from a domain CommissionLiquidation entity.
func (m *CommissionLiquidationModel) FromDomain(cl *finance.CommissionLiquidation) {
	m.FromDomainAuditedAggregateRoot(cl.AuditedAggregateRoot)
	m.SaleID = cl.SaleID
	m.AdvisorID = cl.AdvisorID
	m.AdvisorName = cl.AdvisorName
	m.CommissionRate = cl.CommissionRate
	m.AlreadyLiquidated = cl.AlreadyLiquidated
}

// CommissionLiquidationModelFromDomain creates a new persistence model from domain.
func CommissionLiquidationModelFromDomain(cl *finance.CommissionLiquidation) *CommissionLiquidationModel {
	m := &CommissionLiquidationModel{}
	m.FromDomain(cl)
	return m
}

// LiquidationEntryModel is the persistence model for LiquidationEntry history rows.
type LiquidationEntryModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	LiquidationID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	AdvisorID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	LiquidationPct      decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	Base20              decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CumulativeCollected decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalCommission     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LiquidableAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountLiquidated    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LiquidatedAt        time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LiquidationEntryModel) TableName() string {
	return "liquidation_entries"
}

// ToDomain converts the persistence model to a domain LiquidationEntry.
func (m *LiquidationEntryModel) ToDomain() *finance.LiquidationEntry {
	return &finance.LiquidationEntry{
		ID:                  m.ID,
		LiquidationID:       m.LiquidationID,
		SaleID:              m.SaleID,
		AdvisorID:           m.AdvisorID,
		LiquidationPct:      m.LiquidationPct,
		Base20:              m.Base20,
		CumulativeCollected: m.CumulativeCollected,
		TotalCommission:     m.TotalCommission,
		LiquidableAmount:    m.LiquidableAmount,
		AmountLiquidated:    m.AmountLiquidated,
		LiquidatedAt:        m.LiquidatedAt,
	}
}

// FromDomain populates the persistence model from a domain LiquidationEntry.
func (m *LiquidationEntryModel) FromDomain(e *finance.LiquidationEntry) {
	m.ID = e.ID
	m.LiquidationID = e.LiquidationID
	m.SaleID = e.SaleID
	m.AdvisorID = e.AdvisorID
	m.LiquidationPct = e.LiquidationPct
	m.Base20 = e.Base20
	m.CumulativeCollected = e.CumulativeCollected
	m.TotalCommission = e.TotalCommission
	m.LiquidableAmount = e.LiquidableAmount
	m.AmountLiquidated = e.AmountLiquidated
	m.LiquidatedAt = e.LiquidatedAt
}

// LiquidationEntryModelFromDomain creates a new persistence model from domain.
func LiquidationEntryModelFromDomain(e *finance.LiquidationEntry) *LiquidationEntryModel {
	m := &LiquidationEntryModel{}
	m.FromDomain(e)
	return m
}

// TreasuryAlerts stores a request's validation findings as a JSONB column.
type TreasuryAlerts []finance.TreasuryAlert

// Value implements the driver.Valuer interface
func (a TreasuryAlerts) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (a *TreasuryAlerts) Scan(value any) error {
	if value == nil {
		*a = TreasuryAlerts{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan type %T into TreasuryAlerts", value)
	}
	if len(data) == 0 {
		*a = TreasuryAlerts{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// TreasuryRequestModel is the persistence model for the TreasuryRequest aggregate root.
type TreasuryRequestModel struct {
	AuditedAggregateModel
	ExternalRequestID string                        `gorm:"type:varchar(100);not null;uniqueIndex"`
	SaleID            uuid.UUID                     `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	PayerRef          string                        `gorm:"type:varchar(200);not null"`
	ReceivedAt        time.Time                     `gorm:"not null"`
	Status            finance.TreasuryRequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Alerts            TreasuryAlerts                `gorm:"type:jsonb;default:'[]'"`
	FormToken         string                        `gorm:"type:varchar(64)"`
	LinkedReceiptID   *uuid.UUID                    `gorm:"type:uuid;index"`
	ValidatedAt       *time.Time
	ConfirmedAt       *time.Time
	ConfirmedBy       string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (TreasuryRequestModel) TableName() string {
	return "treasury_requests"
}

// ToDomain converts the persistence model to a domain TreasuryRequest entity.
func (m *TreasuryRequestModel) ToDomain() *finance.TreasuryRequest {
	tr := &finance.TreasuryRequest{
		ExternalRequestID: m.ExternalRequestID,
		SaleID:            m.SaleID,
		Amount:            m.Amount,
		PayerRef:          m.PayerRef,
		ReceivedAt:        m.ReceivedAt,
		Status:            m.Status,
		Alerts:            m.Alerts,
		FormToken:         m.FormToken,
		LinkedReceiptID:   m.LinkedReceiptID,
		ValidatedAt:       m.ValidatedAt,
		ConfirmedAt:       m.ConfirmedAt,
		ConfirmedBy:       m.ConfirmedBy,
	}
	m.PopulateAuditedAggregateRoot(&tr.AuditedAggregateRoot)
	return tr
}

// FromDomain populates the persistence model from a domain TreasuryRequest entity.
func (m *TreasuryRequestModel) FromDomain(tr *finance.TreasuryRequest) {
	m.FromDomainAuditedAggregateRoot(tr.AuditedAggregateRoot)
	m.ExternalRequestID = tr.ExternalRequestID
	m.SaleID = tr.SaleID
	m.Amount = tr.Amount
	m.PayerRef = tr.PayerRef
	m.ReceivedAt = tr.ReceivedAt
	m.Status = tr.Status
	m.Alerts = TreasuryAlerts(tr.Alerts)
	m.FormToken = tr.FormToken
	m.LinkedReceiptID = tr.LinkedReceiptID
	m.ValidatedAt = tr.ValidatedAt
	m.ConfirmedAt = tr.ConfirmedAt
	m.ConfirmedBy = tr.ConfirmedBy
}

// TreasuryRequestModelFromDomain creates a new persistence model from domain.
func TreasuryRequestModelFromDomain(tr *finance.TreasuryRequest) *TreasuryRequestModel {
	m := &TreasuryRequestModel{}
	m.FromDomain(tr)
	return m
}
