// Package errors provides custom error types for the Sentinel API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Budget period errors.
var (
	ErrPeriodNotFound     = &AppError{Code: "PERIOD_NOT_FOUND", Message: "Budget period not found", StatusCode: http.StatusNotFound}
	ErrPeriodArchived     = &AppError{Code: "PERIOD_ARCHIVED", Message: "Budget period is archived and read-only", StatusCode: http.StatusConflict}
	ErrInvalidPeriodRange = &AppError{Code: "INVALID_PERIOD_RANGE", Message: "Period start date must not be after end date", StatusCode: http.StatusBadRequest}
	ErrDuplicateCategory  = &AppError{Code: "DUPLICATE_CATEGORY", Message: "Category names must be unique within a period", StatusCode: http.StatusConflict}
)

// Ledger errors. These are local validation failures surfaced directly to
// the caller; none of them are retried or treated as fatal.
var (
	ErrUnknownCategory = &AppError{Code: "UNKNOWN_CATEGORY", Message: "Category does not exist in this period", StatusCode: http.StatusNotFound}
	ErrOutOfPeriod     = &AppError{Code: "OUT_OF_PERIOD", Message: "Transaction date falls outside the budget period", StatusCode: http.StatusBadRequest}
	ErrCategoryLocked  = &AppError{Code: "CATEGORY_LOCKED", Message: "Category is locked by an emergency lockdown", StatusCode: http.StatusLocked}
	ErrInvalidAmount   = &AppError{Code: "INVALID_AMOUNT", Message: "Amount must be greater than zero", StatusCode: http.StatusBadRequest}
)
