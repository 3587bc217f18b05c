package sales

import (
	"context"
	"testing"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newScheduleServiceForTest(
	saleRepo *MockSaleRepository,
	planRepo *MockPaymentPlanRepository,
	installmentRepo *MockInstallmentRepository,
	logRepo *MockSaleLogRepository,
) (*ScheduleService, *capturingPublisher) {
	bus := &capturingPublisher{}
	svc := NewScheduleService(saleRepo, planRepo, installmentRepo, logRepo, passthroughLocker{}, passthroughTx{}, bus)
	return svc, bus
}

func createSyncedSale(t *testing.T, value string) *sales.Sale {
	t.Helper()
	sale, err := sales.NewSale("VTA-2026-020", "Maria Lopez", decimal.RequireFromString(value))
	require.NoError(t, err)
	sale.ClearDomainEvents()
	return sale
}

func TestScheduleService_GeneratePlan(t *testing.T) {
	ctx := context.Background()
	sale := createSyncedSale(t, "100000000")

	saleRepo := new(MockSaleRepository)
	planRepo := new(MockPaymentPlanRepository)
	installmentRepo := new(MockInstallmentRepository)
	logRepo := new(MockSaleLogRepository)
	service, bus := newScheduleServiceForTest(saleRepo, planRepo, installmentRepo, logRepo)

	saleRepo.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)
	installmentRepo.On("AnyPaidBySaleID", mock.Anything, sale.ID).Return(false, nil)
	installmentRepo.On("DeleteBySaleID", mock.Anything, sale.ID).Return(nil)
	planRepo.On("DeleteBySaleID", mock.Anything, sale.ID).Return(nil)
	planRepo.On("Save", mock.Anything, mock.AnythingOfType("*sales.PaymentPlan")).Return(nil)
	installmentRepo.On("SaveAll", mock.Anything, mock.AnythingOfType("[]*sales.Installment")).Return(nil)
	logRepo.On("Append", mock.Anything, mock.AnythingOfType("*sales.SaleLog")).Return(nil)

	result, err := service.GeneratePlan(ctx, GeneratePlanRequest{
		SaleID:               sale.ID,
		InitialAmount:        decimal.RequireFromString("20000000"),
		InitialInstallments:  4,
		InitialPeriodicity:   sales.PeriodicityMonthly,
		FinancedInstallments: 24,
		MonthlyRate:          decimal.RequireFromString("0.012"),
		Amortization:         sales.AmortizationFrench,
		MoraRateMonthly:      decimal.RequireFromString("0.03"),
		GraceDays:            5,
		StartDate:            time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Len(t, result.Installments, 28)
	assert.Equal(t, "80000000", result.Plan.FinancedAmount.String())
	assert.Equal(t, "CI1", result.Installments[0].Sequence)
	assert.Equal(t, "FN1", result.Installments[4].Sequence)
	require.Len(t, bus.events, 1)
	assert.Equal(t, "ScheduleGenerated", bus.events[0].EventType())

	planRepo.AssertExpectations(t)
	installmentRepo.AssertExpectations(t)
}

func TestScheduleService_GeneratePlan_LockedOncePaid(t *testing.T) {
	ctx := context.Background()
	sale := createSyncedSale(t, "100000000")

	saleRepo := new(MockSaleRepository)
	planRepo := new(MockPaymentPlanRepository)
	installmentRepo := new(MockInstallmentRepository)
	service, _ := newScheduleServiceForTest(saleRepo, planRepo, installmentRepo, new(MockSaleLogRepository))

	saleRepo.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)
	installmentRepo.On("AnyPaidBySaleID", mock.Anything, sale.ID).Return(true, nil)

	_, err := service.GeneratePlan(ctx, GeneratePlanRequest{
		SaleID:               sale.ID,
		InitialAmount:        decimal.Zero,
		InitialPeriodicity:   sales.PeriodicityMonthly,
		FinancedInstallments: 12,
		MonthlyRate:          decimal.Zero,
		Amortization:         sales.AmortizationGerman,
		MoraRateMonthly:      decimal.Zero,
		StartDate:            time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be regenerated")
	planRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestScheduleService_AssessMora(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	plan, err := sales.NewPaymentPlan(saleID,
		decimal.RequireFromString("2000"), decimal.Zero, 0, sales.PeriodicityMonthly,
		2, decimal.Zero, sales.AmortizationGerman,
		decimal.RequireFromString("0.03"), 0,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// One installment 31 days late, one not yet due
	overdue, err := sales.NewInstallment(saleID, "FN1", 1,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("1000"), decimal.Zero)
	require.NoError(t, err)
	future, err := sales.NewInstallment(saleID, "FN2", 2,
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("1000"), decimal.Zero)
	require.NoError(t, err)

	saleRepo := new(MockSaleRepository)
	planRepo := new(MockPaymentPlanRepository)
	installmentRepo := new(MockInstallmentRepository)
	logRepo := new(MockSaleLogRepository)
	service, bus := newScheduleServiceForTest(saleRepo, planRepo, installmentRepo, logRepo)

	planRepo.On("FindBySaleID", mock.Anything, saleID).Return(plan, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return([]*sales.Installment{overdue, future}, nil)
	installmentRepo.On("SaveAll", mock.Anything, []*sales.Installment{overdue}).Return(nil)
	logRepo.On("Append", mock.Anything, mock.AnythingOfType("*sales.SaleLog")).Return(nil)

	result, err := service.AssessMora(ctx, saleID, asOf, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.RaisedCount)
	// 1000 * (0.03 / 30) * 31 days = 31
	assert.Equal(t, "31", result.TotalAssessed.String())
	assert.Equal(t, "31", overdue.MoraDue.String())
	assert.True(t, future.MoraDue.IsZero())
	require.Len(t, bus.events, 1)
	assert.Equal(t, "MoraAssessed", bus.events[0].EventType())
}

func TestScheduleService_AssessMora_NoChangesNothingSaved(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	plan, err := sales.NewPaymentPlan(saleID,
		decimal.RequireFromString("1000"), decimal.Zero, 0, sales.PeriodicityMonthly,
		1, decimal.Zero, sales.AmortizationGerman,
		decimal.RequireFromString("0.03"), 0,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	future, err := sales.NewInstallment(saleID, "FN1", 1,
		time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("1000"), decimal.Zero)
	require.NoError(t, err)

	planRepo := new(MockPaymentPlanRepository)
	installmentRepo := new(MockInstallmentRepository)
	service, bus := newScheduleServiceForTest(new(MockSaleRepository), planRepo, installmentRepo, new(MockSaleLogRepository))

	planRepo.On("FindBySaleID", mock.Anything, saleID).Return(plan, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return([]*sales.Installment{future}, nil)

	result, err := service.AssessMora(ctx, saleID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.RaisedCount)
	assert.Empty(t, bus.events)
	installmentRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}

func TestScheduleService_GetSchedule(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	inst, err := sales.NewInstallment(saleID, "FN1", 1,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("1000"), decimal.Zero)
	require.NoError(t, err)

	installmentRepo := new(MockInstallmentRepository)
	service, _ := newScheduleServiceForTest(new(MockSaleRepository), new(MockPaymentPlanRepository), installmentRepo, new(MockSaleLogRepository))

	installmentRepo.On("FindBySaleID", mock.Anything, saleID).Return([]*sales.Installment{inst}, nil)
	installmentRepo.On("FindOutstandingBySaleID", mock.Anything, saleID).Return([]*sales.Installment{inst}, nil)

	full, err := service.GetSchedule(ctx, saleID, false)
	require.NoError(t, err)
	assert.Len(t, full, 1)

	outstanding, err := service.GetSchedule(ctx, saleID, true)
	require.NoError(t, err)
	assert.Len(t, outstanding, 1)
}
