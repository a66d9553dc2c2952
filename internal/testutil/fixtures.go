package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"spendwise/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// ExpenseOption customizes a fixture before it is inserted.
type ExpenseOption func(*models.Expense)

// WithCategory sets the fixture category.
func WithCategory(category string) ExpenseOption {
	return func(e *models.Expense) { e.Category = category }
}

// WithDate sets the fixture calendar date (YYYY-MM-DD).
func WithDate(date string) ExpenseOption {
	return func(e *models.Expense) { e.Date = date }
}

// WithAmount sets the fixture amount in cents.
func WithAmount(cents int64) ExpenseOption {
	return func(e *models.Expense) { e.Amount = models.Money(cents) }
}

// WithCreatedAt sets the fixture creation timestamp.
func WithCreatedAt(ts time.Time) ExpenseOption {
	return func(e *models.Expense) { e.CreatedAt = ts.UTC() }
}

// WithIdempotencyKey sets the fixture idempotency key.
func WithIdempotencyKey(key string) ExpenseOption {
	return func(e *models.Expense) { e.IdempotencyKey = key }
}

// CreateTestExpense inserts an expense with a unique idempotency key.
// Defaults: 10.00 Food on 2024-01-15, created now.
func CreateTestExpense(t *testing.T, db *gorm.DB, opts ...ExpenseOption) *models.Expense {
	t.Helper()

	n := nextID()
	expense := &models.Expense{
		Amount:         1000,
		Category:       string(models.CategoryFood),
		Description:    fmt.Sprintf("Test expense %d", n),
		Date:           "2024-01-15",
		CreatedAt:      time.Now().UTC(),
		IdempotencyKey: fmt.Sprintf("fixture-key-%d", n),
	}
	for _, opt := range opts {
		opt(expense)
	}

	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
