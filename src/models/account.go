package models

import "time"

// AccountType classifies an account for balance summaries and overdraft policy.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// AccountTypes lists every valid account type in summary order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if t == v {
			return true
		}
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusInactive
}

// Account is a row of the accounts table. Balance is derived state and only the
// ledger's balance primitive writes it.
type Account struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	AccountType    AccountType   `json:"account_type"`
	InitialBalance Money         `json:"initial_balance"`
	Balance        Money         `json:"balance"`
	Status         AccountStatus `json:"status"`
	UserID         *int64        `json:"user_id,omitempty"` // nil = shared/system account
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (a *Account) IsActive() bool { return a.Status == AccountStatusActive }

// NewAccount is the input to AccountStore.Create.
type NewAccount struct {
	Name           string      `json:"name"`
	AccountType    AccountType `json:"account_type"`
	InitialBalance Money       `json:"initial_balance"`
	UserID         *int64      `json:"user_id,omitempty"`
}

// AccountUpdate carries the editable account fields; nil means unchanged.
type AccountUpdate struct {
	Name        *string        `json:"name,omitempty"`
	AccountType *AccountType   `json:"account_type,omitempty"`
	Status      *AccountStatus `json:"status,omitempty"`
	UserID      *int64         `json:"user_id,omitempty"`
	ClearUserID bool           `json:"clear_user_id,omitempty"`
}

// AccountFilter narrows AccountStore.List. Empty fields match everything.
type AccountFilter struct {
	AccountType AccountType
	Status      AccountStatus
	NamePattern string // case-insensitive substring
}

// BalanceSummary aggregates balances per account type.
type BalanceSummary struct {
	ByType   map[AccountType]Money `json:"by_type"`
	NetWorth Money                 `json:"net_worth"` // assets - liabilities + equity
}

// TransactionSummary totals an account's transactions in a date range.
type TransactionSummary struct {
	AccountID    int64     `json:"account_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	TotalInflow  Money     `json:"total_inflow"`
	TotalOutflow Money     `json:"total_outflow"` // negative or zero
	Net          Money     `json:"net"`
	Count        int       `json:"count"`
}
