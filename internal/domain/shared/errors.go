package shared

import "errors"

// Error codes shared by every layer. The HTTP layer maps them to status codes.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNoItemsSelected    = "NO_ITEMS_SELECTED"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeRemoteWrite        = "REMOTE_WRITE_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInvalidState       = "INVALID_STATE"
	CodeExceedsOutstanding = "EXCEEDS_OUTSTANDING"
)

// DomainError represents a domain-level error.
// Message is safe to show to a user; the cause is kept for logs only.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError carrying the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps cause for diagnostics
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrValidation         = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNoItemsSelected    = NewDomainError(CodeNoItemsSelected, "No items selected")
	ErrInsufficientStock  = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrRemoteWrite        = NewDomainError(CodeRemoteWrite, "The server could not save the change, please try again")
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists      = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidState       = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrExceedsOutstanding = NewDomainError(CodeExceedsOutstanding, "Amount exceeds the outstanding balance")
)

// IsTransient reports whether err is a remote failure worth retrying later
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteWrite)
}

// CodeOf returns the code of the first DomainError in err's chain, or "" if none
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
