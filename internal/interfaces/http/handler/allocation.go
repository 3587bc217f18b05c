package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/javila-dev/rojoz/internal/application/finance"
)

// AllocationHandler handles payment allocation endpoints
type AllocationHandler struct {
	BaseHandler
	allocationService *financeapp.PaymentAllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *financeapp.PaymentAllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// Allocate godoc
// @ID           allocateReceipt
// @Summary      Allocate a receipt across the schedule
// @Description  Applies the receipt amount through the waterfall (mora, then interest, then principal, oldest installment first). Any remainder is retained as residual credit on the sale.
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.AllocationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receipts/{id}/allocate [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	result, err := h.allocationService.Allocate(c.Request.Context(), receiptID, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListApplications godoc
// @ID           listReceiptApplications
// @Summary      List the applications of a receipt
// @Description  Returns the per-bucket application rows produced when the receipt was allocated.
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]finance.PaymentApplication}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receipts/{id}/applications [get]
func (h *AllocationHandler) ListApplications(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	applications, err := h.allocationService.ListApplications(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, applications)
}

// ApplyCredit godoc
// @ID           applyCredit
// @Summary      Apply residual credit to the schedule
// @Description  Pushes the sale's accumulated residual credit through the allocation waterfall, typically after new installments fall due.
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.AllocationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/credit/apply [post]
func (h *AllocationHandler) ApplyCredit(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	result, err := h.allocationService.ApplyCredit(c.Request.Context(), saleID, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Simulate godoc
// @ID           simulateAllocation
// @Summary      Simulate an allocation
// @Description  Previews how an amount would distribute across the outstanding schedule without persisting anything.
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        amount query number true "Amount to simulate" minimum(0.01)
// @Param        as_of query string false "Valuation date (ISO 8601), defaults to today" format(date)
// @Success      200 {object} dto.Response{data=finance.AllocationSimulation}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/allocations/simulate [get]
func (h *AllocationHandler) Simulate(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		h.BadRequest(c, "amount must be a positive number")
		return
	}

	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		asOf, err = parseDate(raw)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	simulation, err := h.allocationService.Simulate(c.Request.Context(), saleID, toDecimal(amount), asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, simulation)
}

// RegisterRoutes registers all allocation routes
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receiptsGroup := rg.Group("/receipts")
	{
		receiptsGroup.POST("/:id/allocate", h.Allocate)
		receiptsGroup.GET("/:id/applications", h.ListApplications)
	}

	salesGroup := rg.Group("/sales")
	{
		salesGroup.POST("/:id/credit/apply", h.ApplyCredit)
		salesGroup.GET("/:id/allocations/simulate", h.Simulate)
	}
}
