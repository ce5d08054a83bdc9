package models

import "time"

type ReconciliationStatus string

const (
	ReconciliationBalanced   ReconciliationStatus = "balanced"
	ReconciliationUnbalanced ReconciliationStatus = "unbalanced"
)

// ReconciliationLog is an append-only record of one reconciliation run.
type ReconciliationLog struct {
	ID               int64                `json:"id"`
	AccountID        int64                `json:"account_id"`
	StartDate        time.Time            `json:"start_date"`
	EndDate          time.Time            `json:"end_date"`
	ExpectedBalance  Money                `json:"expected_balance"`
	ActualBalance    Money                `json:"actual_balance"`
	Difference       Money                `json:"difference"` // actual - expected
	Status           ReconciliationStatus `json:"status"`
	TransactionCount int                  `json:"transaction_count"`
	ReconciledBy     int64                `json:"reconciled_by"`
	ReconciledAt     time.Time            `json:"reconciled_at"`
}

// ReconciliationResult is returned by Reconciler.Reconcile.
type ReconciliationResult struct {
	LogID              int64  `json:"log_id"`
	AccountID          int64  `json:"account_id"`
	AccountName        string `json:"account_name"`
	ActualBalance      Money  `json:"actual_balance"`
	TheoreticalBalance Money  `json:"theoretical_balance"`
	Difference         Money  `json:"difference"`
	IsBalanced         bool   `json:"is_balanced"`
	TransactionCount   int    `json:"transaction_count"` // transactions dated within the range
	MarkedReconciled   int    `json:"marked_reconciled"`
}
