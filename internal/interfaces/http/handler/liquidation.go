package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/javila-dev/rojoz/internal/application/finance"
)

// LiquidationHandler handles commission liquidation endpoints
type LiquidationHandler struct {
	BaseHandler
	liquidationService *financeapp.LiquidationService
}

// NewLiquidationHandler creates a new LiquidationHandler
func NewLiquidationHandler(liquidationService *financeapp.LiquidationService) *LiquidationHandler {
	return &LiquidationHandler{
		liquidationService: liquidationService,
	}
}

// Snapshot godoc
// @ID           getLiquidationSnapshot
// @Summary      Get the liquidation snapshot of a sale
// @Description  Returns the commission position per advisor: collected amount, collection percentage over the commission base, accrued and already liquidated commission, and the payable delta.
// @Tags         liquidations
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.SaleLiquidationView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/liquidation [get]
func (h *LiquidationHandler) Snapshot(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	view, err := h.liquidationService.Snapshot(c.Request.Context(), saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, view)
}

// Liquidate godoc
// @ID           liquidateAdvisor
// @Summary      Liquidate an advisor's commission on a sale
// @Description  Pays out the accrued commission above the advisor's high-water mark. Repeating the call without new collections is a no-op and returns the current snapshot with no entry.
// @Tags         liquidations
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        advisor_id path string true "Advisor ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.LiquidateResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/advisors/{advisor_id}/liquidate [post]
func (h *LiquidationHandler) Liquidate(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}
	advisorID, err := uuid.Parse(c.Param("advisor_id"))
	if err != nil {
		h.BadRequest(c, "Invalid advisor ID format")
		return
	}

	result, err := h.liquidationService.Liquidate(c.Request.Context(), saleID, advisorID, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// History godoc
// @ID           getLiquidationHistory
// @Summary      Get the liquidation history of a sale
// @Tags         liquidations
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]finance.LiquidationEntry}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/liquidation/history [get]
func (h *LiquidationHandler) History(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	entries, err := h.liquidationService.History(c.Request.Context(), saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// Queue godoc
// @ID           getLiquidationQueue
// @Summary      Get the liquidation queue
// @Description  Lists every advisor/sale pair with commission pending payout, with the total pending across the portfolio.
// @Tags         liquidations
// @Produce      json
// @Success      200 {object} dto.Response{data=financeapp.LiquidationQueueResponse}
// @Security     BearerAuth
// @Router       /liquidations/queue [get]
func (h *LiquidationHandler) Queue(c *gin.Context) {
	queue, err := h.liquidationService.Queue(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, queue)
}

// RegisterRoutes registers all liquidation routes
func (h *LiquidationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	salesGroup := rg.Group("/sales")
	{
		salesGroup.GET("/:id/liquidation", h.Snapshot)
		salesGroup.POST("/:id/advisors/:advisor_id/liquidate", h.Liquidate)
		salesGroup.GET("/:id/liquidation/history", h.History)
	}

	liquidationsGroup := rg.Group("/liquidations")
	{
		liquidationsGroup.GET("/queue", h.Queue)
	}
}
