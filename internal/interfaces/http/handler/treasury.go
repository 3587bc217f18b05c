package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/javila-dev/rojoz/internal/application/finance"
)

// TreasuryHandler handles the treasury wire intake workflow. These routes sit
// behind the platform API token rather than staff JWTs.
type TreasuryHandler struct {
	BaseHandler
	treasuryService *financeapp.TreasuryService
}

// NewTreasuryHandler creates a new TreasuryHandler
func NewTreasuryHandler(treasuryService *financeapp.TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{
		treasuryService: treasuryService,
	}
}

// ===================== Request DTOs =====================

// RegisterTreasuryRequest represents an incoming wire notification
// @Description Treasury wire registration request
type RegisterTreasuryRequest struct {
	ExternalRequestID string  `json:"external_request_id" binding:"required" example:"TRE-2026-91842"`
	SaleID            string  `json:"sale_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Amount            float64 `json:"amount" binding:"required,gt=0" example:"3500000"`
	PayerRef          string  `json:"payer_ref" binding:"required" example:"bancolombia-ref-88213"`
	ReceivedAt        string  `json:"received_at" binding:"required" example:"2026-08-10T14:30:00Z"`
}

// ConfirmTreasuryRequest carries the one-time form token back for confirmation
type ConfirmTreasuryRequest struct {
	FormToken   string `json:"form_token" binding:"required" example:"9f2c1e7a4b..."`
	ConfirmedBy string `json:"confirmed_by" binding:"required" example:"treasury-operator-12"`
}

// ===================== Handlers =====================

// Register godoc
// @ID           registerTreasuryRequest
// @Summary      Register a treasury wire
// @Description  Registers an incoming wire against a sale, keyed by the external request ID. Resubmitting the same external ID returns the existing request.
// @Tags         treasury
// @Accept       json
// @Produce      json
// @Param        request body RegisterTreasuryRequest true "Wire notification"
// @Success      201 {object} dto.Response{data=finance.TreasuryRequest}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     ApiKeyAuth
// @Router       /treasury/requests [post]
func (h *TreasuryHandler) Register(c *gin.Context) {
	var req RegisterTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	saleID, err := uuid.Parse(req.SaleID)
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}
	receivedAt, err := parseDate(req.ReceivedAt)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	request, err := h.treasuryService.Register(c.Request.Context(), financeapp.RegisterTreasuryRequest{
		ExternalRequestID: req.ExternalRequestID,
		SaleID:            saleID,
		Amount:            toDecimal(req.Amount),
		PayerRef:          req.PayerRef,
		ReceivedAt:        receivedAt,
		ActorID:           actorID(c),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, request)
}

// Validate godoc
// @ID           validateTreasuryRequest
// @Summary      Validate a treasury request
// @Description  Runs the validation checks against the sale and schedule, records any alerts, and issues the one-time form token needed to confirm. The token is only returned on this call.
// @Tags         treasury
// @Produce      json
// @Param        id path string true "Treasury request ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.ValidationResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     ApiKeyAuth
// @Router       /treasury/requests/{id}/validate [post]
func (h *TreasuryHandler) Validate(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID format")
		return
	}

	result, err := h.treasuryService.Validate(c.Request.Context(), requestID, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Confirm godoc
// @ID           confirmTreasuryRequest
// @Summary      Confirm a treasury request
// @Description  Confirms a validated request with its one-time form token. A spent or mismatched token is rejected.
// @Tags         treasury
// @Accept       json
// @Produce      json
// @Param        id path string true "Treasury request ID" format(uuid)
// @Param        request body ConfirmTreasuryRequest true "Confirmation"
// @Success      200 {object} dto.Response{data=finance.TreasuryRequest}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     ApiKeyAuth
// @Router       /treasury/requests/{id}/confirm [post]
func (h *TreasuryHandler) Confirm(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID format")
		return
	}

	var req ConfirmTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	request, err := h.treasuryService.Confirm(c.Request.Context(), requestID, req.FormToken, req.ConfirmedBy, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, request)
}

// GenerateReceipt godoc
// @ID           generateTreasuryReceipt
// @Summary      Generate the receipt of a confirmed treasury request
// @Description  Materializes a payment receipt from the confirmed wire and allocates it across the schedule. Calling it again returns the receipt already linked to the request.
// @Tags         treasury
// @Produce      json
// @Param        id path string true "Treasury request ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.TreasuryReceiptResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     ApiKeyAuth
// @Router       /treasury/requests/{id}/receipt [post]
func (h *TreasuryHandler) GenerateReceipt(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID format")
		return
	}

	result, err := h.treasuryService.GenerateReceipt(c.Request.Context(), requestID, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetRequest godoc
// @ID           getTreasuryRequest
// @Summary      Get a treasury request
// @Tags         treasury
// @Produce      json
// @Param        id path string true "Treasury request ID" format(uuid)
// @Success      200 {object} dto.Response{data=finance.TreasuryRequest}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     ApiKeyAuth
// @Router       /treasury/requests/{id} [get]
func (h *TreasuryHandler) GetRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID format")
		return
	}

	request, err := h.treasuryService.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, request)
}

// RegisterRoutes registers all treasury routes
func (h *TreasuryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	treasuryGroup := rg.Group("/treasury/requests")
	{
		treasuryGroup.POST("", h.Register)
		treasuryGroup.POST("/:id/validate", h.Validate)
		treasuryGroup.POST("/:id/confirm", h.Confirm)
		treasuryGroup.POST("/:id/receipt", h.GenerateReceipt)
		treasuryGroup.GET("/:id", h.GetRequest)
	}
}
