package sales

import (
	"context"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindBySaleNumber(ctx context.Context, saleNumber string) (*sales.Sale, error) {
	args := m.Called(ctx, saleNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindApprovedWithAdvisors(ctx context.Context) ([]sales.Sale, error) {
	args := m.Called(ctx)
	return args.Get(0).([]sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) Count(ctx context.Context, filter sales.SaleFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentPlanRepository struct {
	mock.Mock
}

func (m *MockPaymentPlanRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*sales.PaymentPlan, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.PaymentPlan), args.Error(1)
}

func (m *MockPaymentPlanRepository) Save(ctx context.Context, plan *sales.PaymentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPaymentPlanRepository) DeleteBySaleID(ctx context.Context, saleID uuid.UUID) error {
	args := m.Called(ctx, saleID)
	return args.Error(0)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) ([]*sales.Installment, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).([]*sales.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindOutstandingBySaleID(ctx context.Context, saleID uuid.UUID) ([]*sales.Installment, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).([]*sales.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) Save(ctx context.Context, installment *sales.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockInstallmentRepository) SaveAll(ctx context.Context, installments []*sales.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) DeleteBySaleID(ctx context.Context, saleID uuid.UUID) error {
	args := m.Called(ctx, saleID)
	return args.Error(0)
}

func (m *MockInstallmentRepository) AnyPaidBySaleID(ctx context.Context, saleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, saleID)
	return args.Bool(0), args.Error(1)
}

type MockSaleLogRepository struct {
	mock.Mock
}

func (m *MockSaleLogRepository) Append(ctx context.Context, entry *sales.SaleLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSaleLogRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID, filter sales.SaleLogFilter) ([]sales.SaleLog, error) {
	args := m.Called(ctx, saleID, filter)
	return args.Get(0).([]sales.SaleLog), args.Error(1)
}

func (m *MockSaleLogRepository) CountBySaleID(ctx context.Context, saleID uuid.UUID, filter sales.SaleLogFilter) (int64, error) {
	args := m.Called(ctx, saleID, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentReceipt), args.Error(1)
}

func (m *MockReceiptRepository) FindByFingerprint(ctx context.Context, saleID uuid.UUID, fingerprint string) (*finance.PaymentReceipt, error) {
	args := m.Called(ctx, saleID, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentReceipt), args.Error(1)
}

func (m *MockReceiptRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID, filter finance.ReceiptFilter) ([]finance.PaymentReceipt, error) {
	args := m.Called(ctx, saleID, filter)
	return args.Get(0).([]finance.PaymentReceipt), args.Error(1)
}

func (m *MockReceiptRepository) FindWithSurplusBySaleID(ctx context.Context, saleID uuid.UUID) ([]*finance.PaymentReceipt, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).([]*finance.PaymentReceipt), args.Error(1)
}

func (m *MockReceiptRepository) AnyBySaleID(ctx context.Context, saleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, saleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReceiptRepository) Save(ctx context.Context, receipt *finance.PaymentReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) SaveWithLock(ctx context.Context, receipt *finance.PaymentReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) CountBySaleID(ctx context.Context, saleID uuid.UUID, filter finance.ReceiptFilter) (int64, error) {
	args := m.Called(ctx, saleID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// passthroughLocker runs the function directly, no locking
type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// passthroughTx runs the function directly, no transaction
type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// capturingPublisher records every published event
type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}
