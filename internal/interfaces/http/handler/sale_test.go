package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// newSaleTestRouter wires a SaleHandler with no backing service. Only request
// validation paths are exercised here; they return before the service is hit.
func newSaleTestRouter() *gin.Engine {
	router := gin.New()
	h := NewSaleHandler(nil)
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestSaleHandler_SyncSale_Validation(t *testing.T) {
	router := newSaleTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing sale number", `{"buyer_name":"ana","sale_value":1000,"status":"APPROVED","advisors":[{"advisor_id":"550e8400-e29b-41d4-a716-446655440000","advisor_name":"x","commission_rate":0.02}]}`},
		{"zero sale value", `{"sale_number":"VT-1","buyer_name":"ana","sale_value":0,"status":"APPROVED","advisors":[{"advisor_id":"550e8400-e29b-41d4-a716-446655440000","advisor_name":"x","commission_rate":0.02}]}`},
		{"unknown status", `{"sale_number":"VT-1","buyer_name":"ana","sale_value":1000,"status":"SHIPPED","advisors":[{"advisor_id":"550e8400-e29b-41d4-a716-446655440000","advisor_name":"x","commission_rate":0.02}]}`},
		{"no advisors", `{"sale_number":"VT-1","buyer_name":"ana","sale_value":1000,"status":"APPROVED","advisors":[]}`},
		{"advisor id not a uuid", `{"sale_number":"VT-1","buyer_name":"ana","sale_value":1000,"status":"APPROVED","advisors":[{"advisor_id":"not-a-uuid","advisor_name":"x","commission_rate":0.02}]}`},
		{"commission rate above one", `{"sale_number":"VT-1","buyer_name":"ana","sale_value":1000,"status":"APPROVED","advisors":[{"advisor_id":"550e8400-e29b-41d4-a716-446655440000","advisor_name":"x","commission_rate":1.5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/sync", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "ERR_BAD_REQUEST")
		})
	}
}

func TestSaleHandler_GetSale_InvalidID(t *testing.T) {
	router := newSaleTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid sale ID format")
}

func TestSaleHandler_ListSales_InvalidQuery(t *testing.T) {
	router := newSaleTestRouter()

	tests := []struct {
		name  string
		query string
	}{
		{"bad status", "?status=SHIPPED"},
		{"bad advisor id", "?advisor_id=nope"},
		{"bad from date", "?from_date=31-12-2026"},
		{"bad to date", "?to_date=soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sales"+tt.query, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSaleHandler_GetSaleLogs_InvalidID(t *testing.T) {
	router := newSaleTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/nope/logs", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaleHandler_RoutesRegistered(t *testing.T) {
	router := newSaleTestRouter()

	routes := router.Routes()
	paths := make(map[string]bool, len(routes))
	for _, r := range routes {
		paths[r.Method+" "+r.Path] = true
	}

	assert.True(t, paths["POST /api/v1/sales/sync"])
	assert.True(t, paths["GET /api/v1/sales"])
	assert.True(t, paths["GET /api/v1/sales/:id"])
	assert.True(t, paths["GET /api/v1/sales/:id/logs"])
}
