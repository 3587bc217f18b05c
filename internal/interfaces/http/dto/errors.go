package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeContention is used when a sale-level settlement lock could not
	// be acquired after retries
	ErrCodeContention = "ERR_CONTENTION"
)

// Settlement business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeDuplicateReceipt is used when an ingested receipt matches the
	// fingerprint of an existing non-voided receipt
	ErrCodeDuplicateReceipt = "ERR_DUPLICATE_RECEIPT"
	// ErrCodeAlreadyAllocated is used when allocating a receipt twice
	ErrCodeAlreadyAllocated = "ERR_ALREADY_ALLOCATED"
	// ErrCodeSaleNotApproved is used when settlement operations target a
	// sale that is not in the approved state
	ErrCodeSaleNotApproved = "ERR_SALE_NOT_APPROVED"
	// ErrCodeScheduleLocked is used when regenerating a plan that already
	// has payments applied
	ErrCodeScheduleLocked = "ERR_SCHEDULE_LOCKED"
	// ErrCodeNoEvidence is used when a receipt carries no evidence document
	ErrCodeNoEvidence = "ERR_NO_EVIDENCE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeContention:          http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity, except duplicate
	// receipts and double allocation which are conflicts
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:     http.StatusUnprocessableEntity,
	ErrCodeDuplicateReceipt: http.StatusConflict,
	ErrCodeAlreadyAllocated: http.StatusConflict,
	ErrCodeSaleNotApproved:  http.StatusUnprocessableEntity,
	ErrCodeScheduleLocked:   http.StatusUnprocessableEntity,
	ErrCodeNoEvidence:       http.StatusNotFound,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the standardized
// wire-level codes. Domain packages keep their short codes; the HTTP
// surface always answers in the ERR_* format.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"SALE_NOT_FOUND":       ErrCodeNotFound,
	"PLAN_NOT_FOUND":       ErrCodeNotFound,
	"RECEIPT_NOT_FOUND":    ErrCodeNotFound,
	"ADVISOR_NOT_FOUND":    ErrCodeNotFound,
	"REQUEST_NOT_FOUND":    ErrCodeNotFound,
	"ENTRY_NOT_FOUND":      ErrCodeNotFound,
	"NO_EVIDENCE":          ErrCodeNoEvidence,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"ADVISOR_EXISTS":       ErrCodeAlreadyExists,
	"DUPLICATE_RECEIPT":    ErrCodeDuplicateReceipt,
	"ALREADY_ALLOCATED":    ErrCodeAlreadyAllocated,
	"SALE_NOT_APPROVED":    ErrCodeSaleNotApproved,
	"SCHEDULE_LOCKED":      ErrCodeScheduleLocked,
	"BUCKET_OVERPAYMENT":   ErrCodeBusinessRule,
	"INSUFFICIENT_CREDIT":  ErrCodeBusinessRule,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"CONTENTION":           ErrCodeContention,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"TOKEN_EXPIRED":        ErrCodeTokenExpired,
	"TOKEN_INVALID":        ErrCodeTokenInvalid,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
