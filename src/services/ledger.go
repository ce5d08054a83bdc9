package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
)

const ckBalanceSummary = "agg_balance_summary"

// Points inside an atomic unit where a test hook may inject a failure.
const (
	stepRowWritten      = "row_written"
	stepFirstLegWritten = "first_leg_written"
	stepLogWritten      = "log_written"
)

// Ledger is the state shared by every balance-mutating component: the store,
// the write lock that serializes them, and their collaborators. The components
// built from one Ledger must be the only writers of that store.
type Ledger struct {
	db       *sql.DB
	mu       sync.Mutex
	cache    *cache.Cache
	perms    PermissionChecker
	audit    AuditSink
	policy   OverdraftPolicy
	currency string

	faultHook func(step string) error
}

func NewLedger(db *sql.DB, reportCache *cache.Cache, perms PermissionChecker, audit AuditSink, policy OverdraftPolicy, currency string) *Ledger {
	if reportCache == nil {
		reportCache = cache.New(cache.NoExpiration, 0)
	}
	if perms == nil {
		perms = AllowAll{}
	}
	return &Ledger{
		db:       db,
		cache:    reportCache,
		perms:    perms,
		audit:    audit,
		policy:   policy,
		currency: currency,
	}
}

// atomic runs fn as one database transaction under the ledger write lock.
// Anything fn wrote is rolled back if it returns an error or panics.
func (l *Ledger) atomic(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := database.WithTx(ctx, l.db, fn); err != nil {
		return storageErr(op, err)
	}
	l.cache.Delete(ckBalanceSummary)
	return nil
}

func (l *Ledger) step(name string) error {
	if l.faultHook == nil {
		return nil
	}
	return l.faultHook(name)
}

func (l *Ledger) authorize(ctx context.Context, actorID, accountID int64) error {
	ok, err := l.perms.HasWritePermission(ctx, actorID, ResourceAccount, accountID)
	if err != nil {
		return storageErr("check permission", err)
	}
	if !ok {
		return &PermissionDeniedError{ActorID: actorID, AccountID: accountID}
	}
	return nil
}

// record hands a committed operation to the audit sink.
func (l *Ledger) record(ctx context.Context, actorID int64, operationType, description string) {
	if l.audit == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.FromContext(ctx).Warn("Audit sink panicked", "operation", operationType, "actorID", actorID, "panic", p)
		}
	}()
	if err := l.audit.LogOperation(ctx, actorID, operationType, description); err != nil {
		logger.FromContext(ctx).Warn("Failed to write audit entry", "operation", operationType, "actorID", actorID, "error", err)
	}
}

func (l *Ledger) format(m models.Money) string {
	return m.Format(l.currency)
}

func loadAccount(ctx context.Context, q database.DBTX, id int64) (*models.Account, error) {
	a, err := model.GetAccountByID(ctx, q, id)
	if err != nil {
		return nil, notFoundOr("account", id, "load account", err)
	}
	return a, nil
}

func loadActiveAccount(ctx context.Context, q database.DBTX, id int64) (*models.Account, error) {
	a, err := loadAccount(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return nil, &AccountInactiveError{AccountID: id}
	}
	return a, nil
}

func loadTransaction(ctx context.Context, q database.DBTX, id int64) (*models.Transaction, error) {
	t, err := model.GetTransactionByID(ctx, q, id)
	if err != nil {
		return nil, notFoundOr("transaction", id, "load transaction", err)
	}
	return t, nil
}

// applyBalance is the only code path that changes a stored balance after
// account creation. A delta that would overflow the balance is rejected.
func (l *Ledger) applyBalance(ctx context.Context, tx *sql.Tx, accountID int64, delta models.Money) error {
	if delta.IsZero() {
		return nil
	}
	account, err := loadAccount(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if _, ok := account.Balance.Add(delta); !ok {
		return errBalanceOverflow(accountID)
	}
	if err := model.AdjustAccountBalance(ctx, tx, accountID, delta); err != nil {
		return notFoundOr("account", accountID, "adjust balance", err)
	}
	return nil
}

// insertPosting writes t and moves its account balance by t.Amount.
func (l *Ledger) insertPosting(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	if err := model.InsertTransaction(ctx, tx, t); err != nil {
		return storageErr("insert transaction", err)
	}
	if err := l.step(stepRowWritten); err != nil {
		return err
	}
	return l.applyBalance(ctx, tx, t.AccountID, t.Amount)
}

// today is the current UTC date at midnight, as stored dates are read back.
func today() time.Time {
	d, _ := time.Parse(models.DateLayout, time.Now().UTC().Format(models.DateLayout))
	return d
}
