package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReceiptTestRouter() *gin.Engine {
	router := gin.New()
	h := NewReceiptHandler(nil)
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestReceiptHandler_IngestReceipt_JSONValidation(t *testing.T) {
	router := newReceiptTestRouter()
	saleID := "550e8400-e29b-41d4-a716-446655440000"

	tests := []struct {
		name string
		path string
		body string
	}{
		{"invalid sale id", "/api/v1/sales/nope/receipts", `{}`},
		{"malformed json", "/api/v1/sales/" + saleID + "/receipts", `{`},
		{"zero amount", "/api/v1/sales/" + saleID + "/receipts", `{"amount":0,"payer_ref":"ref","received_at":"2026-08-10"}`},
		{"missing payer ref", "/api/v1/sales/" + saleID + "/receipts", `{"amount":1000,"received_at":"2026-08-10"}`},
		{"missing received_at", "/api/v1/sales/" + saleID + "/receipts", `{"amount":1000,"payer_ref":"ref"}`},
		{"bad received_at", "/api/v1/sales/" + saleID + "/receipts", `{"amount":1000,"payer_ref":"ref","received_at":"10/08/2026"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestBindIngestRequest_Multipart(t *testing.T) {
	h := NewReceiptHandler(nil)

	buildMultipart := func(t *testing.T, fields map[string]string, fileContent []byte) (*bytes.Buffer, string) {
		t.Helper()
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		for k, v := range fields {
			require.NoError(t, writer.WriteField(k, v))
		}
		if fileContent != nil {
			part, err := writer.CreateFormFile("document", "voucher.pdf")
			require.NoError(t, err)
			_, err = part.Write(fileContent)
			require.NoError(t, err)
		}
		require.NoError(t, writer.Close())
		return body, writer.FormDataContentType()
	}

	newContext := func(body *bytes.Buffer, contentType string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/receipts", body)
		c.Request.Header.Set("Content-Type", contentType)
		return c
	}

	t.Run("parses fields and document", func(t *testing.T) {
		body, contentType := buildMultipart(t, map[string]string{
			"amount":      "3500000",
			"payer_ref":   "bancolombia-ref-88213",
			"received_at": "2026-08-10T14:30:00Z",
		}, []byte("pdf-bytes"))

		req, document, _, err := h.bindIngestRequest(newContext(body, contentType))
		require.NoError(t, err)
		assert.Equal(t, 3500000.0, req.Amount)
		assert.Equal(t, "bancolombia-ref-88213", req.PayerRef)
		assert.Equal(t, []byte("pdf-bytes"), document)
	})

	t.Run("document is optional", func(t *testing.T) {
		body, contentType := buildMultipart(t, map[string]string{
			"amount":      "1000",
			"payer_ref":   "ref",
			"received_at": "2026-08-10",
		}, nil)

		req, document, docType, err := h.bindIngestRequest(newContext(body, contentType))
		require.NoError(t, err)
		assert.NotNil(t, req)
		assert.Nil(t, document)
		assert.Empty(t, docType)
	})

	t.Run("rejects non numeric amount", func(t *testing.T) {
		body, contentType := buildMultipart(t, map[string]string{
			"amount":      "lots",
			"payer_ref":   "ref",
			"received_at": "2026-08-10",
		}, nil)

		_, _, _, err := h.bindIngestRequest(newContext(body, contentType))
		assert.ErrorIs(t, err, errInvalidFormAmount)
	})

	t.Run("rejects missing payer ref", func(t *testing.T) {
		body, contentType := buildMultipart(t, map[string]string{
			"amount":      "1000",
			"received_at": "2026-08-10",
		}, nil)

		_, _, _, err := h.bindIngestRequest(newContext(body, contentType))
		assert.ErrorIs(t, err, errMissingFormFields)
	})
}

func TestReceiptHandler_VoidReceipt_Validation(t *testing.T) {
	router := newReceiptTestRouter()
	receiptID := "550e8400-e29b-41d4-a716-446655440000"

	t.Run("invalid receipt id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/nope/void", strings.NewReader(`{"reason":"dup"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing reason", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/"+receiptID+"/void", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReceiptHandler_EvidenceURL_Validation(t *testing.T) {
	router := newReceiptTestRouter()
	receiptID := "550e8400-e29b-41d4-a716-446655440000"

	tests := []struct {
		name  string
		query string
	}{
		{"not a number", "?expires_in=soon"},
		{"zero", "?expires_in=0"},
		{"negative", "?expires_in=-60"},
		{"above max", "?expires_in=90000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/receipts/"+receiptID+"/evidence-url"+tt.query, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "expires_in")
		})
	}
}

func TestReceiptHandler_ListReceipts_InvalidQuery(t *testing.T) {
	router := newReceiptTestRouter()
	saleID := "550e8400-e29b-41d4-a716-446655440000"

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+saleID+"/receipts?status=REFUNDED", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiptHandler_RoutesRegistered(t *testing.T) {
	router := newReceiptTestRouter()

	routes := router.Routes()
	paths := make(map[string]bool, len(routes))
	for _, r := range routes {
		paths[r.Method+" "+r.Path] = true
	}

	assert.True(t, paths["POST /api/v1/sales/:id/receipts"])
	assert.True(t, paths["GET /api/v1/sales/:id/receipts"])
	assert.True(t, paths["GET /api/v1/receipts/:id"])
	assert.True(t, paths["POST /api/v1/receipts/:id/void"])
	assert.True(t, paths["GET /api/v1/receipts/:id/evidence-url"])
}
