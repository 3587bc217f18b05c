package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"sale_number": true,
	"buyer_name":  true,
	"sale_value":  true,
	"status":      true,
	"approved_at": true,
}

// ReceiptSortFields contains allowed sort fields for payment receipts
var ReceiptSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"amount":      true,
	"payer_ref":   true,
	"received_at": true,
	"status":      true,
	"surplus":     true,
}

// SaleLogSortFields contains allowed sort fields for sale audit entries
var SaleLogSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"action":     true,
}
