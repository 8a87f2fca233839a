package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeUnknownProduct      = "UNKNOWN_PRODUCT"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidDeliveryTime = "INVALID_DELIVERY_TIME"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business rule violation with a stable code.
type DomainError struct {
	Code    string
	Message string
}

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

// Common domain errors
var (
	ErrEmptyCart           = NewDomainError(ErrCodeEmptyCart, "Order must contain at least one item with quantity greater than zero")
	ErrUnknownProduct      = NewDomainError(ErrCodeUnknownProduct, "One or more item codes are not in the catalog")
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must not be negative")
	ErrInvalidDeliveryTime = NewDomainError(ErrCodeInvalidDeliveryTime, "Delivery time is not an accepted time window")
)
