package testutil

import (
	"errors"
	"testing"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertSameExpense fails unless both records describe the same stored row.
func AssertSameExpense(t *testing.T, want, got *models.Expense) {
	t.Helper()

	if want == nil || got == nil {
		t.Fatalf("expected two expenses, got %v and %v", want, got)
	}
	if got.ID != want.ID {
		t.Errorf("expected id %s, got %s", want.ID, got.ID)
	}
	if got.Amount != want.Amount {
		t.Errorf("expected amount %s, got %s", want.Amount, got.Amount)
	}
	if got.Category != want.Category {
		t.Errorf("expected category %q, got %q", want.Category, got.Category)
	}
	if got.Description != want.Description {
		t.Errorf("expected description %q, got %q", want.Description, got.Description)
	}
	if got.Date != want.Date {
		t.Errorf("expected date %s, got %s", want.Date, got.Date)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", want.CreatedAt, got.CreatedAt)
	}
	if got.IdempotencyKey != want.IdempotencyKey {
		t.Errorf("expected idempotency key %q, got %q", want.IdempotencyKey, got.IdempotencyKey)
	}
}
