package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"sentinel", ErrExpenseNotFound, http.StatusNotFound, "EXPENSE_NOT_FOUND", "Expense not found"},
		{"custom message", WithMessage(ErrInvalidInput, "amount must be greater than zero"), http.StatusBadRequest, "INVALID_INPUT", "amount must be greater than zero"},
		{"wrapped internal", Wrap(ErrInternalServer, stderrors.New("db down")), http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred"},
		{"app error wrapped by fmt", fmt.Errorf("create: %w", ErrIdempotencyKeyMismatch), http.StatusBadRequest, "IDEMPOTENCY_KEY_MISMATCH", ErrIdempotencyKeyMismatch.Message},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := NewErrorResponse(tt.err)
			if status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, status)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, resp.Error.Code)
			}
			if resp.Error.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Error.Message)
			}
		})
	}
}

func TestAppError_Is(t *testing.T) {
	wrapped := Wrap(ErrInternalServer, stderrors.New("db down"))
	if !stderrors.Is(wrapped, ErrInternalServer) {
		t.Error("wrapped error should match its sentinel")
	}
	if stderrors.Is(wrapped, ErrInvalidInput) {
		t.Error("wrapped error should not match another sentinel")
	}
}
