package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a domain error for rejected input.
// Validation failures are always reported before any mutation happens.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Error codes shared across the settlement core. Handlers map these to
// HTTP statuses; services branch on them for retry decisions.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeDuplicateReceipt = "DUPLICATE_RECEIPT"
	ErrCodeAlreadyAllocated = "ALREADY_ALLOCATED"
	ErrCodeSaleNotApproved  = "SALE_NOT_APPROVED"
	ErrCodeContention       = "CONTENTION"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrAlreadyAllocated    = NewDomainError(ErrCodeAlreadyAllocated, "Receipt has already been allocated")
	ErrSaleNotApproved     = NewDomainError(ErrCodeSaleNotApproved, "Sale is not approved for settlement")
	ErrContention          = NewDomainError(ErrCodeContention, "Sale is locked by another settlement operation")
)
