package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/javila-dev/rojoz/internal/application/finance"
	"github.com/javila-dev/rojoz/internal/domain/finance"
	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/interfaces/http/dto"
)

// maxEvidenceSize caps uploaded receipt documents at 10 MiB
const maxEvidenceSize = 10 << 20

var (
	errInvalidFormAmount = errors.New("amount must be a positive number")
	errMissingFormFields = errors.New("payer_ref and received_at are required")
	errEvidenceTooLarge  = errors.New("evidence document exceeds the 10 MiB limit")
)

// ReceiptHandler handles payment receipt endpoints
type ReceiptHandler struct {
	BaseHandler
	receiptService *financeapp.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *financeapp.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
	}
}

// ===================== Request DTOs =====================

// IngestReceiptRequest represents a JSON receipt ingestion request
// @Description Payment receipt ingestion request
type IngestReceiptRequest struct {
	Amount     float64 `json:"amount" binding:"required,gt=0" example:"3500000"`
	PayerRef   string  `json:"payer_ref" binding:"required" example:"bancolombia-ref-88213"`
	ReceivedAt string  `json:"received_at" binding:"required" example:"2026-08-10T14:30:00Z"`
}

// VoidReceiptRequest represents a receipt void request
type VoidReceiptRequest struct {
	Reason string `json:"reason" binding:"required" example:"duplicate of REC earlier wire"`
}

// ListReceiptsRequest represents receipt list query parameters
type ListReceiptsRequest struct {
	dto.ListRequest
	Status   string `form:"status" binding:"omitempty,oneof=PENDING ALLOCATED VOIDED"`
	FromDate string `form:"from_date" binding:"omitempty"`
	ToDate   string `form:"to_date" binding:"omitempty"`
}

// EvidenceURLResponse carries a presigned evidence download link
// @Description Presigned evidence URL
type EvidenceURLResponse struct {
	URL       string    `json:"url" example:"https://storage.example.com/evidence/..."`
	ExpiresAt time.Time `json:"expires_at" example:"2026-08-10T15:30:00Z"`
}

// ===================== Handlers =====================

// IngestReceipt godoc
// @ID           ingestReceipt
// @Summary      Ingest a payment receipt
// @Description  Records a payment receipt against a sale. Accepts JSON or multipart form data with an evidence document. Resubmitting the same receipt returns the original with duplicate=true instead of creating a second one.
// @Tags         receipts
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body IngestReceiptRequest true "Receipt details (JSON mode)"
// @Success      200 {object} dto.Response{data=financeapp.IngestReceiptResult} "Duplicate submission, original receipt returned"
// @Success      201 {object} dto.Response{data=financeapp.IngestReceiptResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/receipts [post]
func (h *ReceiptHandler) IngestReceipt(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	req, document, docContentType, err := h.bindIngestRequest(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receivedAt, err := parseDate(req.ReceivedAt)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.receiptService.IngestReceipt(c.Request.Context(), financeapp.IngestReceiptRequest{
		SaleID:         saleID,
		Amount:         toDecimal(req.Amount),
		PayerRef:       req.PayerRef,
		ReceivedAt:     receivedAt,
		Document:       document,
		DocContentType: docContentType,
		ActorID:        actorID(c),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if result.Duplicate {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// bindIngestRequest binds either a JSON body or a multipart form with an
// optional evidence file under the "document" field.
func (h *ReceiptHandler) bindIngestRequest(c *gin.Context) (*IngestReceiptRequest, []byte, string, error) {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req IngestReceiptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, nil, "", err
		}
		return &req, nil, "", nil
	}

	amount, err := strconv.ParseFloat(c.PostForm("amount"), 64)
	if err != nil || amount <= 0 {
		return nil, nil, "", errInvalidFormAmount
	}
	req := &IngestReceiptRequest{
		Amount:     amount,
		PayerRef:   c.PostForm("payer_ref"),
		ReceivedAt: c.PostForm("received_at"),
	}
	if req.PayerRef == "" || req.ReceivedAt == "" {
		return nil, nil, "", errMissingFormFields
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		// Evidence is optional in multipart mode too
		return req, nil, "", nil
	}
	if fileHeader.Size > maxEvidenceSize {
		return nil, nil, "", errEvidenceTooLarge
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, "", err
	}
	defer file.Close()
	document, err := io.ReadAll(io.LimitReader(file, maxEvidenceSize))
	if err != nil {
		return nil, nil, "", err
	}
	return req, document, fileHeader.Header.Get("Content-Type"), nil
}

// GetReceipt godoc
// @ID           getReceipt
// @Summary      Get a payment receipt
// @Tags         receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} dto.Response{data=finance.PaymentReceipt}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// ListReceipts godoc
// @ID           listReceipts
// @Summary      List the receipts of a sale
// @Tags         receipts
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        status query string false "Receipt status" Enums(PENDING, ALLOCATED, VOIDED)
// @Param        from_date query string false "From date (ISO 8601)" format(date)
// @Param        to_date query string false "To date (ISO 8601)" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]finance.PaymentReceipt,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/receipts [get]
func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	req := ListReceiptsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := finance.ReceiptFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
		},
	}
	if req.Status != "" {
		status := finance.ReceiptStatus(req.Status)
		filter.Status = &status
	}
	fromDate, toDate, err := parseDateRange(req.FromDate, req.ToDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.FromDate = fromDate
	filter.ToDate = toDate

	receipts, total, err := h.receiptService.ListReceipts(c.Request.Context(), saleID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, receipts, total, filter.Page, filter.PageSize)
}

// VoidReceipt godoc
// @ID           voidReceipt
// @Summary      Void a payment receipt
// @Description  Marks a receipt as voided with a reason. Allocated receipts cannot be voided; reverse the allocation first.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        request body VoidReceiptRequest true "Void reason"
// @Success      200 {object} dto.Response{data=finance.PaymentReceipt}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receipts/{id}/void [post]
func (h *ReceiptHandler) VoidReceipt(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req VoidReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.receiptService.VoidReceipt(c.Request.Context(), receiptID, req.Reason, actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// EvidenceURL godoc
// @ID           getReceiptEvidenceURL
// @Summary      Get a presigned URL for receipt evidence
// @Description  Returns a time-limited download link for the stored evidence document of a receipt.
// @Tags         receipts
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        expires_in query int false "Link lifetime in seconds" default(900) maximum(86400)
// @Success      200 {object} dto.Response{data=EvidenceURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receipts/{id}/evidence-url [get]
func (h *ReceiptHandler) EvidenceURL(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	expiresIn := 15 * time.Minute
	if raw := c.Query("expires_in"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 || seconds > 86400 {
			h.BadRequest(c, "expires_in must be between 1 and 86400 seconds")
			return
		}
		expiresIn = time.Duration(seconds) * time.Second
	}

	url, expiresAt, err := h.receiptService.EvidenceURL(c.Request.Context(), receiptID, expiresIn)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, EvidenceURLResponse{URL: url, ExpiresAt: expiresAt})
}

// RegisterRoutes registers all receipt routes
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	salesGroup := rg.Group("/sales")
	{
		salesGroup.POST("/:id/receipts", h.IngestReceipt)
		salesGroup.GET("/:id/receipts", h.ListReceipts)
	}

	receiptsGroup := rg.Group("/receipts")
	{
		receiptsGroup.GET("/:id", h.GetReceipt)
		receiptsGroup.POST("/:id/void", h.VoidReceipt)
		receiptsGroup.GET("/:id/evidence-url", h.EvidenceURL)
	}
}
