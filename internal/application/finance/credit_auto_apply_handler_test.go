package finance

import (
	"context"
	"testing"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreditAutoApplyHandler_EventTypes(t *testing.T) {
	h := NewCreditAutoApplyHandler(nil, zap.NewNop())
	assert.Equal(t, []string{"PaymentAllocated"}, h.EventTypes())
}

func TestCreditAutoApplyHandler_AppliesResidualCredit(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	// A receipt that allocated with 500 left over
	receipt := createAllocatableReceipt(t, saleID, "1500")
	require.NoError(t, receipt.MarkAllocated(decimal.RequireFromString("500"), time.Now().UTC()))
	receipt.ClearDomainEvents()

	installment := createOutstandingInstallment(t, saleID, "FN2", 2,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "0", "200", "800")

	receiptRepo := new(MockReceiptRepository)
	applicationRepo := new(MockApplicationRepository)
	installmentRepo := new(MockInstallmentRepository)
	logRepo := new(MockSaleLogRepository)
	service, _ := newAllocationServiceForTest(receiptRepo, applicationRepo, installmentRepo, new(MockSaleRepository), logRepo, passthroughLocker{})

	receiptRepo.On("FindWithSurplusBySaleID", mock.Anything, saleID).Return([]*finance.PaymentReceipt{receipt}, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return([]*sales.Installment{installment}, nil)
	receiptRepo.On("SaveWithLock", mock.Anything, receipt).Return(nil)
	installmentRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*sales.Installment")).Return(nil)
	applicationRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*finance.PaymentApplication")).Return(nil)
	logRepo.On("Append", mock.Anything, mock.AnythingOfType("*sales.SaleLog")).Return(nil)

	h := NewCreditAutoApplyHandler(service, zap.NewNop())
	event := finance.NewPaymentAllocatedEvent(receipt, decimal.RequireFromString("1000"), decimal.RequireFromString("500"), 2)

	err := h.Handle(ctx, event)

	require.NoError(t, err)
	assert.True(t, receipt.Surplus.IsZero())
	receiptRepo.AssertExpectations(t)
	applicationRepo.AssertExpectations(t)
}

func TestCreditAutoApplyHandler_SkipsCleanAllocations(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	receipt := createAllocatableReceipt(t, saleID, "1000")
	require.NoError(t, receipt.MarkAllocated(decimal.Zero, time.Now().UTC()))
	receipt.ClearDomainEvents()

	receiptRepo := new(MockReceiptRepository)
	service, _ := newAllocationServiceForTest(receiptRepo, new(MockApplicationRepository),
		new(MockInstallmentRepository), new(MockSaleRepository), new(MockSaleLogRepository), passthroughLocker{})

	h := NewCreditAutoApplyHandler(service, zap.NewNop())
	event := finance.NewPaymentAllocatedEvent(receipt, decimal.RequireFromString("1000"), decimal.Zero, 1)

	err := h.Handle(ctx, event)

	require.NoError(t, err)
	receiptRepo.AssertNotCalled(t, "FindWithSurplusBySaleID", mock.Anything, mock.Anything)
}

func TestCreditAutoApplyHandler_RejectsUnexpectedEventType(t *testing.T) {
	receipt := createAllocatableReceipt(t, uuid.New(), "1000")
	h := NewCreditAutoApplyHandler(nil, zap.NewNop())

	err := h.Handle(context.Background(), finance.NewReceiptIngestedEvent(receipt))
	assert.Error(t, err)
}
