// src/services/interfaces.go
package services

import (
	"context"
	"iter"
	"time"

	"github.com/username/ledgercore/src/models"
)

// AccountStore manages account records. It never writes the balance column
// after creation.
type AccountStore interface {
	Create(ctx context.Context, in models.NewAccount, actorID int64) (*models.Account, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
	Update(ctx context.Context, id int64, fields models.AccountUpdate, actorID int64) (*models.Account, error)
	Delete(ctx context.Context, id int64, actorID int64) error
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	BalanceSummary(ctx context.Context) (*models.BalanceSummary, error)
	TransactionSummary(ctx context.Context, accountID int64, start, end time.Time) (*models.TransactionSummary, error)
}

// TransactionLedger posts, edits and removes single transactions, keeping the
// owning account balance in step with each change.
type TransactionLedger interface {
	Post(ctx context.Context, in models.TransactionInput, actorID int64) (*models.Transaction, error)
	Update(ctx context.Context, id int64, in models.TransactionInput, actorID int64) (*models.Transaction, error)
	Delete(ctx context.Context, id int64, actorID int64) error
	Get(ctx context.Context, id int64) (*models.Transaction, error)

	// Query yields matching transactions newest first. The sequence reads the
	// store lazily in batches and may be ranged over more than once.
	Query(ctx context.Context, filter models.TransactionFilter, page models.Page) iter.Seq2[models.Transaction, error]
}

// TransferCoordinator moves funds between two accounts as one atomic operation.
type TransferCoordinator interface {
	Transfer(ctx context.Context, req models.TransferRequest, actorID int64) (*models.TransferResult, error)
	// ForTransaction returns the transfer either leg belongs to.
	ForTransaction(ctx context.Context, transactionID int64) (*models.TransferRecord, error)
}

// ReversalHandler cancels a posted transaction by appending its opposite.
type ReversalHandler interface {
	Reverse(ctx context.Context, transactionID int64, reason string, actorID int64) (*models.Transaction, error)
}

// Reconciler checks stored balances against transaction history.
type Reconciler interface {
	Reconcile(ctx context.Context, accountID int64, start, end time.Time, actorID int64) (*models.ReconciliationResult, error)
	Logs(ctx context.Context, accountID int64) ([]models.ReconciliationLog, error)
}

type CategoryStore interface {
	Create(ctx context.Context, name string, categoryType models.CategoryType) (*models.Category, error)
	Get(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
}

// PermissionChecker answers whether an actor may modify a resource.
type PermissionChecker interface {
	HasWritePermission(ctx context.Context, actorID int64, resourceType string, resourceID int64) (bool, error)
}

// AuditSink records completed operations. Errors are reported but never fail
// the operation being audited.
type AuditSink interface {
	LogOperation(ctx context.Context, actorID int64, operationType, description string) error
}

// AuditLog reads back what a persistent AuditSink recorded.
type AuditLog interface {
	Recent(ctx context.Context, actorID int64, limit int) ([]models.AuditEntry, error)
}

const ResourceAccount = "account"

// Audit operation types.
const (
	OpAccountCreate     = "account_create"
	OpAccountUpdate     = "account_update"
	OpAccountDelete     = "account_delete"
	OpTransactionPost   = "transaction_post"
	OpTransactionUpdate = "transaction_update"
	OpTransactionDelete = "transaction_delete"
	OpTransfer          = "transfer"
	OpReversal          = "reversal"
	OpReconcile         = "reconcile"
)
