package models

import "time"

// CategoryType restricts which transaction type a category may label.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Accepts reports whether a category of this type may label tt. Transfer
// legs take no category.
func (t CategoryType) Accepts(tt TransactionType) bool {
	switch tt {
	case TransactionTypeIncome:
		return t == CategoryTypeIncome
	case TransactionTypeExpense:
		return t == CategoryTypeExpense
	}
	return false
}

type Category struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	CategoryType CategoryType `json:"category_type"`
	CreatedAt    time.Time    `json:"created_at"`
}
