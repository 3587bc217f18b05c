package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/javila-dev/rojoz/internal/application/sales"
	"github.com/javila-dev/rojoz/internal/domain/sales"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/interfaces/http/dto"
)

// SaleHandler handles sale intake and query endpoints
type SaleHandler struct {
	BaseHandler
	saleService *salesapp.SaleSyncService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService *salesapp.SaleSyncService) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// ===================== Request/Response DTOs =====================

// SyncAdvisorRequest represents an advisor of record in a sale sync
// @Description Advisor of record pushed by the sales platform
type SyncAdvisorRequest struct {
	AdvisorID      string  `json:"advisor_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	AdvisorName    string  `json:"advisor_name" binding:"required" example:"maria lopez"`
	CommissionRate float64 `json:"commission_rate" binding:"required,gt=0,lte=1" example:"0.025"`
}

// SyncSaleRequest represents a sale snapshot pushed by the sales platform
// @Description Sale sync request
type SyncSaleRequest struct {
	SaleNumber string               `json:"sale_number" binding:"required" example:"VT-2026-00481"`
	BuyerName  string               `json:"buyer_name" binding:"required" example:"carlos andres rojas"`
	SaleValue  float64              `json:"sale_value" binding:"required,gt=0" example:"180000000"`
	Status     string               `json:"status" binding:"required,oneof=PENDING APPROVED DESISTED ANNULLED CANCELLED" example:"APPROVED"`
	Advisors   []SyncAdvisorRequest `json:"advisors" binding:"required,min=1,dive"`
}

// ListSalesRequest represents sale list query parameters
type ListSalesRequest struct {
	dto.ListRequest
	Status    string `form:"status" binding:"omitempty,oneof=PENDING APPROVED DESISTED ANNULLED CANCELLED"`
	AdvisorID string `form:"advisor_id" binding:"omitempty,uuid"`
	FromDate  string `form:"from_date" binding:"omitempty"`
	ToDate    string `form:"to_date" binding:"omitempty"`
}

// ListSaleLogsRequest represents audit log query parameters
type ListSaleLogsRequest struct {
	dto.ListRequest
	Action   string `form:"action"`
	FromDate string `form:"from_date" binding:"omitempty"`
	ToDate   string `form:"to_date" binding:"omitempty"`
}

// ===================== Handlers =====================

// SyncSale godoc
// @ID           syncSale
// @Summary      Sync a sale from the sales platform
// @Description  Upserts the settlement projection of a sale, keyed by sale number. The sale value freezes once receipts exist; advisors only accumulate.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body SyncSaleRequest true "Sale snapshot"
// @Success      200 {object} dto.Response{data=salesapp.SyncSaleResult}
// @Success      201 {object} dto.Response{data=salesapp.SyncSaleResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/sync [post]
func (h *SaleHandler) SyncSale(c *gin.Context) {
	var req SyncSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	advisors := make([]salesapp.AdvisorInput, 0, len(req.Advisors))
	for _, a := range req.Advisors {
		advisorID, err := uuid.Parse(a.AdvisorID)
		if err != nil {
			h.BadRequest(c, "Invalid advisor ID format")
			return
		}
		advisors = append(advisors, salesapp.AdvisorInput{
			AdvisorID:      advisorID,
			AdvisorName:    a.AdvisorName,
			CommissionRate: toDecimal(a.CommissionRate),
		})
	}

	result, err := h.saleService.SyncSale(c.Request.Context(), salesapp.SyncSaleRequest{
		SaleNumber: req.SaleNumber,
		BuyerName:  req.BuyerName,
		SaleValue:  toDecimal(req.SaleValue),
		Status:     sales.SaleStatus(req.Status),
		Advisors:   advisors,
		ActorID:    actorID(c),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if result.Created {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// ListSales godoc
// @ID           listSales
// @Summary      List sales
// @Description  Retrieve a paginated list of sales under settlement with filtering
// @Tags         sales
// @Produce      json
// @Param        search query string false "Search term (sale number, buyer name)"
// @Param        status query string false "Lifecycle status" Enums(PENDING, APPROVED, DESISTED, ANNULLED, CANCELLED)
// @Param        advisor_id query string false "Advisor ID" format(uuid)
// @Param        from_date query string false "From date (ISO 8601)" format(date)
// @Param        to_date query string false "To date (ISO 8601)" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]sales.Sale,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	req := ListSalesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := sales.SaleFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
	}
	if req.Status != "" {
		status := sales.SaleStatus(req.Status)
		filter.Status = &status
	}
	if req.AdvisorID != "" {
		advisorID, err := uuid.Parse(req.AdvisorID)
		if err != nil {
			h.BadRequest(c, "Invalid advisor ID format")
			return
		}
		filter.AdvisorID = &advisorID
	}
	fromDate, toDate, err := parseDateRange(req.FromDate, req.ToDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.FromDate = fromDate
	filter.ToDate = toDate

	list, total, err := h.saleService.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, list, total, filter.Page, filter.PageSize)
}

// GetSale godoc
// @ID           getSale
// @Summary      Get a sale
// @Description  Retrieve a sale with its advisors of record
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=sales.Sale}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sale)
}

// GetSaleLogs godoc
// @ID           getSaleLogs
// @Summary      Get the audit trail of a sale
// @Description  Retrieve the settlement audit log entries of a sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        action query string false "Filter by action"
// @Param        from_date query string false "From date (ISO 8601)" format(date)
// @Param        to_date query string false "To date (ISO 8601)" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]sales.SaleLog,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/logs [get]
func (h *SaleHandler) GetSaleLogs(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	req := ListSaleLogsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := sales.SaleLogFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
		},
	}
	if req.Action != "" {
		action := sales.SaleLogAction(req.Action)
		filter.Action = &action
	}
	fromDate, toDate, err := parseDateRange(req.FromDate, req.ToDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.FromDate = fromDate
	filter.ToDate = toDate

	logs, total, err := h.saleService.AuditLog(c.Request.Context(), saleID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, logs, total, filter.Page, filter.PageSize)
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	salesGroup := rg.Group("/sales")
	{
		salesGroup.POST("/sync", h.SyncSale)
		salesGroup.GET("", h.ListSales)
		salesGroup.GET("/:id", h.GetSale)
		salesGroup.GET("/:id/logs", h.GetSaleLogs)
	}
}

// parseDateRange parses optional ISO 8601 date bounds shared by list filters
func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	var fromDate, toDate *time.Time
	if from != "" {
		t, err := parseDate(from)
		if err != nil {
			return nil, nil, err
		}
		fromDate = &t
	}
	if to != "" {
		t, err := parseDate(to)
		if err != nil {
			return nil, nil, err
		}
		toDate = &t
	}
	return fromDate, toDate, nil
}
