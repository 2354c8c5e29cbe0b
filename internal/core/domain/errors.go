package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a business error with a structured error code.
// Code is the string written to clients in {"error": code} bodies.
type DomainError struct {
	Code    string // Wire error code (e.g., "invalid_token")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Validation errors (400)
// ============================================================================

var (
	ErrTokenRequired    = NewDomainError("token_required", "token is required")
	ErrPasswordRequired = NewDomainError("password_required", "password is required")
	ErrInvalidKey       = NewDomainError("invalid_key", "key must be 1-128 characters without whitespace")
	ErrKeyRequired      = NewDomainError("key_required", "key query parameter is required")
	ErrNothingToUpdate  = NewDomainError("nothing_to_update", "no updatable field supplied")
)

// ============================================================================
// Authorization errors (401)
// ============================================================================

var (
	ErrInvalidToken        = NewDomainError("invalid_token", "token is unknown or inactive")
	ErrInvalidSecret       = NewDomainError("invalid_secret", "admin secret does not match")
	ErrAdminUnauthorized   = NewDomainError("admin_unauthorized", "admin session required")
	ErrAdminSessionExpired = NewDomainError("admin_session_expired", "admin session expired")
)

// ============================================================================
// Conflict and lookup errors (409, 404)
// ============================================================================

var (
	ErrTokenUsed     = NewDomainError("token_used", "token already redeemed")
	ErrAlreadyExists = NewDomainError("already_exists", "token already exists")
	ErrNotFound      = NewDomainError("not_found", "token not found")
)

// ============================================================================
// System errors (429, 500)
// ============================================================================

var (
	ErrRateLimited        = NewDomainError("rate_limited", "too many requests")
	ErrAdminNotConfigured = NewDomainError("admin_not_configured", "admin secret is not configured")
	ErrServer             = NewDomainError("server_error", "internal server error")
)

// ErrRecordMalformed is returned by the Decode functions when a stored
// value does not have the expected shape. Callers treat it like absence.
var ErrRecordMalformed = errors.New("domain: malformed record")

// HTTPStatus maps a wire error code to its HTTP status. Unknown codes map
// to 500.
func HTTPStatus(code string) int {
	switch code {
	case ErrTokenRequired.Code, ErrPasswordRequired.Code, ErrInvalidKey.Code,
		ErrKeyRequired.Code, ErrNothingToUpdate.Code:
		return http.StatusBadRequest
	case ErrInvalidToken.Code, ErrInvalidSecret.Code,
		ErrAdminUnauthorized.Code, ErrAdminSessionExpired.Code:
		return http.StatusUnauthorized
	case ErrNotFound.Code:
		return http.StatusNotFound
	case ErrTokenUsed.Code, ErrAlreadyExists.Code:
		return http.StatusConflict
	case ErrRateLimited.Code:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
