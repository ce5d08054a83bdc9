package models

import "time"

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

// TransactionType decides the sign a transaction's amount takes on its account.
type TransactionType string

const (
	TransactionTypeIncome      TransactionType = "income"
	TransactionTypeExpense     TransactionType = "expense"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransferIn, TransactionTypeTransferOut:
		return true
	}
	return false
}

// IsTransferLeg reports whether t is one side of a transfer.
func (t TransactionType) IsTransferLeg() bool {
	return t == TransactionTypeTransferIn || t == TransactionTypeTransferOut
}

// Inflow reports whether t increases the account balance.
func (t TransactionType) Inflow() bool {
	return t == TransactionTypeIncome || t == TransactionTypeTransferIn
}

// Opposite is the type of the compensating transaction.
func (t TransactionType) Opposite() TransactionType {
	switch t {
	case TransactionTypeIncome:
		return TransactionTypeExpense
	case TransactionTypeExpense:
		return TransactionTypeIncome
	case TransactionTypeTransferIn:
		return TransactionTypeTransferOut
	case TransactionTypeTransferOut:
		return TransactionTypeTransferIn
	}
	return t
}

// Normalize returns amount with the sign t requires: positive for inflows,
// negative for outflows, whatever sign the caller supplied.
func (t TransactionType) Normalize(amount Money) Money {
	if t.Inflow() {
		return amount.Abs()
	}
	return amount.Abs().Neg()
}

type ReconciliationFlag string

const (
	Unreconciled ReconciliationFlag = "unreconciled"
	Reconciled   ReconciliationFlag = "reconciled"
)

// Transaction is a row of the transactions table. Amount is stored signed.
type Transaction struct {
	ID                    int64              `json:"id"`
	AccountID             int64              `json:"account_id"`
	CategoryID            *int64             `json:"category_id,omitempty"`
	TransactionType       TransactionType    `json:"transaction_type"`
	Amount                Money              `json:"amount"`
	TransactionDate       time.Time          `json:"transaction_date"`
	Description           string             `json:"description"`
	CreatedBy             int64              `json:"created_by"`
	ReconciliationFlag    ReconciliationFlag `json:"reconciliation_flag"`
	ReversesTransactionID *int64             `json:"reverses_transaction_id,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// TransactionInput is what callers post or update. Amount may carry either
// sign; the ledger normalizes it from TransactionType.
type TransactionInput struct {
	AccountID       int64           `json:"account_id"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	TransactionType TransactionType `json:"transaction_type"`
	Amount          Money           `json:"amount"`
	TransactionDate string          `json:"transaction_date"` // YYYY-MM-DD
	Description     string          `json:"description"`
}

// TransactionFilter narrows TransactionLedger.Query. Zero values match everything;
// StartDate/EndDate are inclusive.
type TransactionFilter struct {
	AccountID       int64
	CategoryID      int64
	TransactionType TransactionType
	StartDate       time.Time
	EndDate         time.Time
	Search          string // case-insensitive substring of description
}

// Page bounds a query. Limit <= 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}
