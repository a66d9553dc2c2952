// Package errors provides the application error type for the spendwise API.
// Service-layer errors are AppErrors so that handlers can render a stable
// code and message without leaking internal details to clients.
package errors

import (
	stderrors "errors"
	"net/http"
)

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

// Is matches AppErrors by code, so a wrapped sentinel still satisfies
// errors.Is(err, ErrInternalServer).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

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

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code and a human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse returns the HTTP status and envelope for err. Anything
// that is not an *AppError is reported as ErrInternalServer, so internal
// details never reach the client.
func NewErrorResponse(err error) (int, ErrorResponse) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = ErrInternalServer
	}
	return appErr.StatusCode, ErrorResponse{Error: ErrorBody{Code: appErr.Code, Message: appErr.Message}}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Expense errors.
var (
	ErrExpenseNotFound        = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Expense not found", StatusCode: http.StatusNotFound}
	ErrIdempotencyKeyRequired = &AppError{Code: "IDEMPOTENCY_KEY_REQUIRED", Message: "Idempotency key is required", StatusCode: http.StatusBadRequest}
	ErrIdempotencyKeyMismatch = &AppError{Code: "IDEMPOTENCY_KEY_MISMATCH", Message: "Idempotency key in body and header differ", StatusCode: http.StatusBadRequest}
	ErrIdempotencyKeyTooLong  = &AppError{Code: "IDEMPOTENCY_KEY_TOO_LONG", Message: "Idempotency key must be at most 255 characters", StatusCode: http.StatusBadRequest}
)
