package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is the expense category shown to users.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryOther         Category = "Other"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryHealth,
	CategoryOther,
}

// DateLayout is the calendar date format used for Expense.Date.
const DateLayout = "2006-01-02"

// Expense is a single recorded expense. Rows are written once and never
// updated; IdempotencyKey is unique across the table.
type Expense struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Amount         Money     `gorm:"not null" json:"amount"`
	Category       string    `gorm:"type:varchar(64);not null;index:idx_expenses_category" json:"category"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	Date           string    `gorm:"type:varchar(10);not null" json:"date"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_expenses_idempotency_key" json:"idempotency_key"`
}

// TableName pins the table name used by the SQL migrations.
func (Expense) TableName() string {
	return "expenses"
}

// BeforeCreate assigns a time-ordered UUIDv7 when the caller did not set one.
func (e *Expense) BeforeCreate(_ *gorm.DB) error {
	if e.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	e.ID = id.String()
	return nil
}

// IsKnownCategory reports whether name is one of Categories.
func IsKnownCategory(name string) bool {
	for _, c := range Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}
