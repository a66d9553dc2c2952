package services

import (
	"context"

	"spendwise/internal/models"
)

// ExpenseSort selects the ordering of ListExpenses.
type ExpenseSort string

const (
	// SortCreatedDesc orders by creation time, newest first. It is the default.
	SortCreatedDesc ExpenseSort = "created_desc"
	// SortDateDesc orders by the expense's calendar date, newest first.
	SortDateDesc ExpenseSort = "date_desc"
)

// ParseExpenseSort maps a query value to an ExpenseSort. Anything other
// than "date_desc" falls back to SortCreatedDesc.
func ParseExpenseSort(s string) ExpenseSort {
	if ExpenseSort(s) == SortDateDesc {
		return SortDateDesc
	}
	return SortCreatedDesc
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter struct {
	Category string
	Sort     ExpenseSort
}

// CreateExpenseInput is one creation request. IdempotencyKey identifies the
// logical submission; every request carrying the same key resolves to the
// same stored expense.
type CreateExpenseInput struct {
	Amount         models.Money
	Category       string
	Description    string
	Date           string
	IdempotencyKey string
}

// ExpenseSummary aggregates the expenses matching a filter.
type ExpenseSummary struct {
	Count int64        `json:"count"`
	Total models.Money `json:"total"`
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	// CreateExpense stores a new expense or, when the idempotency key was
	// already used, returns the stored one with replayed set to true.
	CreateExpense(ctx context.Context, input CreateExpenseInput) (expense *models.Expense, replayed bool, err error)
	GetExpenseByID(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]models.Expense, error)
	GetSummary(ctx context.Context, filter ExpenseFilter) (*ExpenseSummary, error)
}
