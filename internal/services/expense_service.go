package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
	"spendwise/internal/models"
)

// MaxIdempotencyKeyLength bounds the client-supplied key.
const MaxIdempotencyKeyLength = 255

// expenseService handles expense-related business logic.
type expenseService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db, now: time.Now}
}

// CreateExpense implements the idempotent create: look the key up, insert
// when it is unused, and fall back to re-reading the winning row when the
// insert loses a race on the idempotency key's unique index.
func (s *expenseService) CreateExpense(ctx context.Context, input CreateExpenseInput) (*models.Expense, bool, error) {
	if err := validateCreateInput(&input); err != nil {
		return nil, false, err
	}
	log := logger.Get()

	existing, err := s.findByIdempotencyKey(ctx, input.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.Infow("idempotent replay",
			"idempotency_key", input.IdempotencyKey,
			"expense_id", existing.ID,
		)
		return existing, true, nil
	}

	expense := &models.Expense{
		Amount:         input.Amount,
		Category:       input.Category,
		Description:    input.Description,
		Date:           input.Date,
		CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
		IdempotencyKey: input.IdempotencyKey,
	}

	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// A concurrent request with the same key committed first.
		winner, findErr := s.findByIdempotencyKey(ctx, input.IdempotencyKey)
		if findErr != nil {
			return nil, false, findErr
		}
		if winner == nil {
			return nil, false, apperrors.Wrap(apperrors.ErrInternalServer,
				fmt.Errorf("idempotency key %q conflicted on insert but no row was found: %w", input.IdempotencyKey, err))
		}
		log.Infow("idempotent replay after insert conflict",
			"idempotency_key", input.IdempotencyKey,
			"expense_id", winner.ID,
		)
		return winner, true, nil
	}

	log.Infow("expense created",
		"expense_id", expense.ID,
		"category", expense.Category,
		"amount", expense.Amount.String(),
	)
	return expense, false, nil
}

// findByIdempotencyKey returns nil without error when no row uses key.
func (s *expenseService) findByIdempotencyKey(ctx context.Context, key string) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// GetExpenseByID retrieves a single expense.
func (s *expenseService) GetExpenseByID(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// ListExpenses returns every expense matching the filter, unpaginated.
func (s *expenseService) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]models.Expense, error) {
	q := applyExpenseFilter(s.db.WithContext(ctx).Model(&models.Expense{}), filter)

	switch filter.Sort {
	case SortDateDesc:
		q = q.Order("date DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	expenses := []models.Expense{}
	if err := q.Order("id DESC").Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

// GetSummary returns the count and total amount of the matching expenses.
func (s *expenseService) GetSummary(ctx context.Context, filter ExpenseFilter) (*ExpenseSummary, error) {
	var row struct {
		Count int64
		Total int64
	}
	q := applyExpenseFilter(s.db.WithContext(ctx).Model(&models.Expense{}), filter)
	if err := q.Select("COUNT(*) AS count, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").Scan(&row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &ExpenseSummary{Count: row.Count, Total: models.Money(row.Total)}, nil
}

func applyExpenseFilter(q *gorm.DB, f ExpenseFilter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

// validateCreateInput checks required fields before any store access.
func validateCreateInput(in *CreateExpenseInput) error {
	in.Category = strings.TrimSpace(in.Category)
	in.Date = strings.TrimSpace(in.Date)

	if in.Amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.Category == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if in.Date == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be formatted as YYYY-MM-DD")
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return apperrors.ErrIdempotencyKeyRequired
	}
	if len(in.IdempotencyKey) > MaxIdempotencyKeyLength {
		return apperrors.ErrIdempotencyKeyTooLong
	}
	return nil
}

// isUniqueConstraintError checks if a GORM error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}
