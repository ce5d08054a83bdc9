package models

import "time"

// TransferRecord links the two legs of a transfer.
type TransferRecord struct {
	ID                int64     `json:"id"`
	FromTransactionID int64     `json:"from_transaction_id"`
	ToTransactionID   int64     `json:"to_transaction_id"`
	Amount            Money     `json:"amount"`
	TransferDate      time.Time `json:"transfer_date"`
	Description       string    `json:"description"`
	CreatedBy         int64     `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// TransferRequest is the input to TransferCoordinator.Transfer.
type TransferRequest struct {
	FromAccountID int64  `json:"from_account_id"`
	ToAccountID   int64  `json:"to_account_id"`
	Amount        Money  `json:"amount"`
	Description   string `json:"description"`
	TransferDate  string `json:"transfer_date,omitempty"` // YYYY-MM-DD, defaults to today
}

// TransferResult identifies what a successful transfer created.
type TransferResult struct {
	TransferID        int64 `json:"transfer_id"`
	FromTransactionID int64 `json:"from_transaction_id"`
	ToTransactionID   int64 `json:"to_transaction_id"`
}
