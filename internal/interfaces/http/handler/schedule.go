package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/javila-dev/rojoz/internal/application/sales"
	"github.com/javila-dev/rojoz/internal/domain/sales"
)

// ScheduleHandler handles payment plan and installment schedule endpoints
type ScheduleHandler struct {
	BaseHandler
	scheduleService *salesapp.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleService *salesapp.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
	}
}

// ===================== Request DTOs =====================

// GeneratePlanRequest represents a payment plan generation request
// @Description Financing terms used to build the installment schedule
type GeneratePlanRequest struct {
	InitialAmount        float64 `json:"initial_amount" binding:"gte=0" example:"36000000"`
	InitialInstallments  int     `json:"initial_installments" binding:"gte=0" example:"6"`
	InitialPeriodicity   string  `json:"initial_periodicity" binding:"omitempty,oneof=MONTHLY QUARTERLY SEMIANNUAL ANNUAL" example:"MONTHLY"`
	FinancedInstallments int     `json:"financed_installments" binding:"gte=0" example:"48"`
	MonthlyRate          float64 `json:"monthly_rate" binding:"gte=0" example:"0.011"`
	Amortization         string  `json:"amortization" binding:"required,oneof=FRENCH GERMAN SIMPLE" example:"FRENCH"`
	MoraRateMonthly      float64 `json:"mora_rate_monthly" binding:"gte=0" example:"0.02"`
	GraceDays            int     `json:"grace_days" binding:"gte=0" example:"5"`
	StartDate            string  `json:"start_date" binding:"required" example:"2026-03-01"`
}

// AssessMoraRequest represents a mora assessment request
type AssessMoraRequest struct {
	AsOf string `json:"as_of" binding:"omitempty" example:"2026-08-15"`
}

// ===================== Handlers =====================

// GeneratePlan godoc
// @ID           generatePlan
// @Summary      Generate the payment plan of a sale
// @Description  Builds the installment schedule (initial installments plus amortized financed installments) for an approved sale. The schedule locks once a payment is applied.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body GeneratePlanRequest true "Financing terms"
// @Success      201 {object} dto.Response{data=salesapp.GeneratePlanResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/plan [post]
func (h *ScheduleHandler) GeneratePlan(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	periodicity := sales.PeriodicityMonthly
	if req.InitialPeriodicity != "" {
		periodicity = sales.Periodicity(req.InitialPeriodicity)
	}

	result, err := h.scheduleService.GeneratePlan(c.Request.Context(), salesapp.GeneratePlanRequest{
		SaleID:               saleID,
		InitialAmount:        toDecimal(req.InitialAmount),
		InitialInstallments:  req.InitialInstallments,
		InitialPeriodicity:   periodicity,
		FinancedInstallments: req.FinancedInstallments,
		MonthlyRate:          toDecimal(req.MonthlyRate),
		Amortization:         sales.AmortizationSystem(req.Amortization),
		MoraRateMonthly:      toDecimal(req.MoraRateMonthly),
		GraceDays:            req.GraceDays,
		StartDate:            startDate,
		ActorID:              actorID(c),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetPlan godoc
// @ID           getPlan
// @Summary      Get the payment plan of a sale
// @Tags         schedules
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=sales.PaymentPlan}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/plan [get]
func (h *ScheduleHandler) GetPlan(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	plan, err := h.scheduleService.GetPlan(c.Request.Context(), saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, plan)
}

// GetSchedule godoc
// @ID           getSchedule
// @Summary      Get the installment schedule of a sale
// @Description  Returns installments in due-date order. With outstanding=true only installments carrying unpaid amounts are returned.
// @Tags         schedules
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        outstanding query bool false "Only installments with open balances" default(false)
// @Success      200 {object} dto.Response{data=[]sales.Installment}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/schedule [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	outstandingOnly := c.Query("outstanding") == "true"

	installments, err := h.scheduleService.GetSchedule(c.Request.Context(), saleID, outstandingOnly)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, installments)
}

// AssessMora godoc
// @ID           assessMora
// @Summary      Assess mora on overdue installments
// @Description  Raises mora charges on installments past their grace window as of the given date. Safe to repeat: already assessed installments are skipped.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body AssessMoraRequest false "Assessment date, defaults to today"
// @Success      200 {object} dto.Response{data=salesapp.MoraAssessmentResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/mora/assess [post]
func (h *ScheduleHandler) AssessMora(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	asOf := time.Now().UTC()
	if c.Request.ContentLength > 0 {
		var req AssessMoraRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		if req.AsOf != "" {
			asOf, err = parseDate(req.AsOf)
			if err != nil {
				h.BadRequest(c, err.Error())
				return
			}
		}
	}

	result, err := h.scheduleService.AssessMora(c.Request.Context(), saleID, asOf, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RegisterRoutes registers all schedule routes
func (h *ScheduleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	salesGroup := rg.Group("/sales")
	{
		salesGroup.POST("/:id/plan", h.GeneratePlan)
		salesGroup.GET("/:id/plan", h.GetPlan)
		salesGroup.GET("/:id/schedule", h.GetSchedule)
		salesGroup.POST("/:id/mora/assess", h.AssessMora)
	}
}
