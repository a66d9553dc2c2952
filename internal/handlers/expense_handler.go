package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// CreateExpenseRequest represents the request payload for creating an expense.
// IdempotencyKey may instead be sent in the Idempotency-Key header.
type CreateExpenseRequest struct {
	Amount         models.Money `json:"amount" binding:"required,gt=0"`
	Category       string       `json:"category" binding:"required,max=64"`
	Description    string       `json:"description" binding:"max=500"`
	Date           string       `json:"date" binding:"required,calendar_date"`
	IdempotencyKey string       `json:"idempotencyKey"`
}

// ListExpensesQuery holds the query parameters accepted by ListExpenses.
type ListExpensesQuery struct {
	Category string `form:"category"`
	Sort     string `form:"sort"`
}

// CreateExpense records an expense exactly once per idempotency key
// @Summary     Create an expense
// @Description Create an expense. Repeating a request with the same idempotency key returns the stored expense with status 200 instead of creating a duplicate.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Param       request         body   CreateExpenseRequest true  "Expense details"
// @Param       Idempotency-Key header string               false "Idempotency key, when not sent in the body"
// @Success     201 {object} models.Expense "Expense created"
// @Success     200 {object} models.Expense "Idempotent replay of a stored expense"
// @Failure     400 {object} apperrors.ErrorResponse "Invalid input or missing idempotency key"
// @Failure     500 {object} apperrors.ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	key, err := resolveIdempotencyKey(c, strings.TrimSpace(req.IdempotencyKey))
	if err != nil {
		_ = c.Error(err)
		return
	}

	expense, replayed, err := h.expenseService.CreateExpense(c.Request.Context(), services.CreateExpenseInput{
		Amount:         req.Amount,
		Category:       req.Category,
		Description:    req.Description,
		Date:           req.Date,
		IdempotencyKey: key,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if replayed {
		c.Header(ReplayedHeader, "true")
		c.JSON(http.StatusOK, expense)
		return
	}
	c.Header("Location", "/expenses/"+expense.ID)
	c.JSON(http.StatusCreated, expense)
}

// ListExpenses returns all expenses, optionally filtered by category
// @Summary     List expenses
// @Description List every expense. Filter by exact category; sort=date_desc orders by date, otherwise newest created first.
// @Tags        expenses
// @Produce     json
// @Param       category query string false "Exact category to filter by"
// @Param       sort     query string false "date_desc, or omit for created_at descending"
// @Success     200 {array}  models.Expense
// @Failure     500 {object} apperrors.ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	var q ListExpensesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expenses, err := h.expenseService.ListExpenses(c.Request.Context(), services.ExpenseFilter{
		Category: q.Category,
		Sort:     services.ParseExpenseSort(q.Sort),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, expenses)
}

// GetExpenseSummary returns the count and total of the matching expenses
// @Summary     Summarize expenses
// @Tags        expenses
// @Produce     json
// @Param       category query string false "Exact category to filter by"
// @Success     200 {object} services.ExpenseSummary
// @Failure     500 {object} apperrors.ErrorResponse "Server error"
// @Router      /expenses/summary [get]
func (h *ExpenseHandler) GetExpenseSummary(c *gin.Context) {
	summary, err := h.expenseService.GetSummary(c.Request.Context(), services.ExpenseFilter{
		Category: c.Query("category"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetExpenseByID returns a single expense
// @Summary     Get an expense
// @Tags        expenses
// @Produce     json
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense
// @Failure     404 {object} apperrors.ErrorResponse "Expense not found"
// @Failure     500 {object} apperrors.ErrorResponse "Server error"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpenseByID(c *gin.Context) {
	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, expense)
}

// ListCategories returns the known expense categories
// @Summary     List categories
// @Tags        categories
// @Produce     json
// @Success     200 {object} map[string][]string
// @Router      /categories [get]
func (h *ExpenseHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}
