package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createOutstandingInstallment(t *testing.T, saleID uuid.UUID, seq string, number int, due time.Time, mora, interest, principal string) *sales.Installment {
	t.Helper()
	inst, err := sales.NewInstallment(saleID, seq, number, due,
		decimal.RequireFromString(principal), decimal.RequireFromString(interest))
	require.NoError(t, err)
	inst.MoraDue = decimal.RequireFromString(mora)
	return inst
}

func newAllocationServiceForTest(
	receiptRepo *MockReceiptRepository,
	applicationRepo *MockApplicationRepository,
	installmentRepo *MockInstallmentRepository,
	saleRepo *MockSaleRepository,
	logRepo *MockSaleLogRepository,
	locker shared.SaleLocker,
) (*PaymentAllocationService, *capturingPublisher) {
	bus := &capturingPublisher{}
	svc := NewPaymentAllocationService(receiptRepo, applicationRepo, installmentRepo, saleRepo, logRepo, locker, passthroughTx{}, bus)
	return svc, bus
}

// =============================================================================
// Test Cases for Allocate
// =============================================================================

func TestPaymentAllocationService_Allocate_Waterfall(t *testing.T) {
	ctx := context.Background()
	sale := createApprovedSale(t, "100000000")
	receipt := createAllocatableReceipt(t, sale.ID, "120000")
	installment := createOutstandingInstallment(t, sale.ID, "FN1", 1,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "50000", "100000", "1000000")

	receiptRepo := new(MockReceiptRepository)
	applicationRepo := new(MockApplicationRepository)
	installmentRepo := new(MockInstallmentRepository)
	saleRepo := new(MockSaleRepository)
	logRepo := new(MockSaleLogRepository)
	service, bus := newAllocationServiceForTest(receiptRepo, applicationRepo, installmentRepo, saleRepo, logRepo, passthroughLocker{})

	receiptRepo.On("FindByID", mock.Anything, receipt.ID).Return(receipt, nil)
	saleRepo.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, sale.ID).Return([]*sales.Installment{installment}, nil)
	installmentRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*sales.Installment")).Return(nil)
	applicationRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*finance.PaymentApplication")).Return(nil)
	receiptRepo.On("SaveWithLock", mock.Anything, receipt).Return(nil)
	logRepo.On("Append", mock.Anything, mock.AnythingOfType("*sales.SaleLog")).Return(nil)

	response, err := service.Allocate(ctx, receipt.ID, nil)

	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, "120000", response.AppliedAmount.String())
	assert.True(t, response.ResidualCredit.IsZero())
	require.Len(t, response.Applications, 2)
	assert.Equal(t, sales.BucketMora, response.Applications[0].Bucket)
	assert.Equal(t, sales.BucketInterest, response.Applications[1].Bucket)
	assert.Equal(t, "50000", installment.MoraPaid.String())
	assert.Equal(t, "70000", installment.InterestPaid.String())
	require.Len(t, bus.events, 1)
	assert.Equal(t, "PaymentAllocated", bus.events[0].EventType())

	receiptRepo.AssertExpectations(t)
	installmentRepo.AssertExpectations(t)
	applicationRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
}

func TestPaymentAllocationService_Allocate_Contention(t *testing.T) {
	ctx := context.Background()
	sale := createApprovedSale(t, "100000000")
	receipt := createAllocatableReceipt(t, sale.ID, "120000")

	receiptRepo := new(MockReceiptRepository)
	service, _ := newAllocationServiceForTest(receiptRepo, new(MockApplicationRepository),
		new(MockInstallmentRepository), new(MockSaleRepository), new(MockSaleLogRepository), contendedLocker{})

	receiptRepo.On("FindByID", mock.Anything, receipt.ID).Return(receipt, nil)

	_, err := service.Allocate(ctx, receipt.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrContention))
}

func TestPaymentAllocationService_Allocate_AlreadyAllocated(t *testing.T) {
	ctx := context.Background()
	sale := createApprovedSale(t, "100000000")
	receipt := createAllocatableReceipt(t, sale.ID, "1000")
	require.NoError(t, receipt.MarkAllocated(decimal.Zero, time.Now().UTC()))

	receiptRepo := new(MockReceiptRepository)
	applicationRepo := new(MockApplicationRepository)
	installmentRepo := new(MockInstallmentRepository)
	saleRepo := new(MockSaleRepository)
	service, _ := newAllocationServiceForTest(receiptRepo, applicationRepo, installmentRepo, saleRepo, new(MockSaleLogRepository), passthroughLocker{})

	receiptRepo.On("FindByID", mock.Anything, receipt.ID).Return(receipt, nil)
	saleRepo.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, sale.ID).Return([]*sales.Installment{}, nil)

	_, err := service.Allocate(ctx, receipt.ID, nil)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, shared.ErrCodeAlreadyAllocated, domainErr.Code)
	applicationRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}

func TestPaymentAllocationService_Allocate_SaleNotApproved(t *testing.T) {
	ctx := context.Background()
	sale, err := sales.NewSale("VTA-2026-003", "Pedro Gomez", decimal.RequireFromString("50000000"))
	require.NoError(t, err)
	receipt := createAllocatableReceipt(t, sale.ID, "1000")

	receiptRepo := new(MockReceiptRepository)
	saleRepo := new(MockSaleRepository)
	service, _ := newAllocationServiceForTest(receiptRepo, new(MockApplicationRepository),
		new(MockInstallmentRepository), saleRepo, new(MockSaleLogRepository), passthroughLocker{})

	receiptRepo.On("FindByID", mock.Anything, receipt.ID).Return(receipt, nil)
	saleRepo.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)

	_, err = service.Allocate(ctx, receipt.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrSaleNotApproved))
}

// =============================================================================
// Test Cases for ApplyCredit
// =============================================================================

func TestPaymentAllocationService_ApplyCredit(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	// A receipt holding 500 of standing credit
	receipt := createAllocatableReceipt(t, saleID, "1500")
	require.NoError(t, receipt.MarkAllocated(decimal.RequireFromString("500"), time.Now().UTC()))
	receipt.ClearDomainEvents()

	installment := createOutstandingInstallment(t, saleID, "FN2", 2,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "0", "200", "800")

	receiptRepo := new(MockReceiptRepository)
	applicationRepo := new(MockApplicationRepository)
	installmentRepo := new(MockInstallmentRepository)
	logRepo := new(MockSaleLogRepository)
	service, bus := newAllocationServiceForTest(receiptRepo, applicationRepo, installmentRepo, new(MockSaleRepository), logRepo, passthroughLocker{})

	receiptRepo.On("FindWithSurplusBySaleID", mock.Anything, saleID).Return([]*finance.PaymentReceipt{receipt}, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return([]*sales.Installment{installment}, nil)
	receiptRepo.On("SaveWithLock", mock.Anything, receipt).Return(nil)
	installmentRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*sales.Installment")).Return(nil)
	applicationRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*finance.PaymentApplication")).Return(nil)
	logRepo.On("Append", mock.Anything, mock.AnythingOfType("*sales.SaleLog")).Return(nil)

	response, err := service.ApplyCredit(ctx, saleID, nil)

	require.NoError(t, err)
	assert.Equal(t, "500", response.AppliedAmount.String())
	assert.True(t, response.ResidualCredit.IsZero())
	assert.True(t, receipt.Surplus.IsZero())
	assert.Equal(t, "200", installment.InterestPaid.String())
	assert.Equal(t, "300", installment.PrincipalPaid.String())
	require.Len(t, bus.events, 1)
	assert.Equal(t, "CreditApplied", bus.events[0].EventType())
}

func TestPaymentAllocationService_ApplyCredit_NoCredit(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	receiptRepo := new(MockReceiptRepository)
	applicationRepo := new(MockApplicationRepository)
	installmentRepo := new(MockInstallmentRepository)
	service, _ := newAllocationServiceForTest(receiptRepo, applicationRepo, installmentRepo, new(MockSaleRepository), new(MockSaleLogRepository), passthroughLocker{})

	receiptRepo.On("FindWithSurplusBySaleID", mock.Anything, saleID).Return([]*finance.PaymentReceipt{}, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return([]*sales.Installment{}, nil)

	response, err := service.ApplyCredit(ctx, saleID, nil)

	require.NoError(t, err)
	assert.True(t, response.AppliedAmount.IsZero())
	assert.Empty(t, response.Applications)
	applicationRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}

// =============================================================================
// Test Cases for Simulate
// =============================================================================

func TestPaymentAllocationService_Simulate(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()
	asOf := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

	schedule := []*sales.Installment{
		createOutstandingInstallment(t, saleID, "FN1", 1, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "0", "0", "1000"),
		createOutstandingInstallment(t, saleID, "FN2", 2, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), "0", "0", "1000"),
	}

	installmentRepo := new(MockInstallmentRepository)
	service, _ := newAllocationServiceForTest(new(MockReceiptRepository), new(MockApplicationRepository),
		installmentRepo, new(MockSaleRepository), new(MockSaleLogRepository), passthroughLocker{})

	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return(schedule, nil)

	sim, err := service.Simulate(ctx, saleID, decimal.RequireFromString("1500"), asOf)

	require.NoError(t, err)
	assert.Equal(t, 2, sim.TouchedTotal)
	assert.Equal(t, 1, sim.TouchedFuture)
	assert.Equal(t, "500", sim.FutureAmount.String())
	// Nothing persisted by a simulation
	assert.True(t, schedule[0].PrincipalPaid.IsZero())
	installmentRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}
