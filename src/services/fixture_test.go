package services

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
)

const actor int64 = 7

var errInjected = errors.New("injected fault")

type auditEntry struct {
	ActorID       int64
	OperationType string
	Description   string
}

// recordingSink keeps audit entries in memory and can be told to fail.
type recordingSink struct {
	mu      sync.Mutex
	entries []auditEntry
	fail    bool
}

func (s *recordingSink) LogOperation(_ context.Context, actorID int64, operationType, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("audit store unavailable")
	}
	s.entries = append(s.entries, auditEntry{actorID, operationType, description})
	return nil
}

func (s *recordingSink) ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ops []string
	for _, e := range s.entries {
		ops = append(ops, e.OperationType)
	}
	return ops
}

type fixture struct {
	ctx        context.Context
	db         *sql.DB
	ledger     *Ledger
	audit      *recordingSink
	accounts   AccountStore
	txs        TransactionLedger
	transfers  TransferCoordinator
	reversals  ReversalHandler
	reconciler Reconciler
	categories CategoryStore
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPermissions(t, nil)
}

// newFixtureWithPermissions builds every component over a fresh migrated
// database. A nil perms grants everything.
func newFixtureWithPermissions(t *testing.T, perms func(*sql.DB) PermissionChecker) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	conn, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, database.Migrate(conn, path))

	var checker PermissionChecker = AllowAll{}
	if perms != nil {
		checker = perms(conn)
	}
	sink := &recordingSink{}
	policy := NewOverdraftPolicy([]string{"liability", "equity", "income", "expense"})
	ledger := NewLedger(conn, cache.New(time.Minute, 0), checker, sink, policy, "EUR")

	return &fixture{
		ctx:        context.Background(),
		db:         conn,
		ledger:     ledger,
		audit:      sink,
		accounts:   NewAccountStore(ledger),
		txs:        NewTransactionLedger(ledger),
		transfers:  NewTransferCoordinator(ledger),
		reversals:  NewReversalHandler(ledger),
		reconciler: NewReconciler(ledger),
		categories: NewCategoryStore(ledger),
	}
}

func (f *fixture) account(t *testing.T, name string, accountType models.AccountType, initial string) *models.Account {
	t.Helper()
	a, err := f.accounts.Create(f.ctx, models.NewAccount{
		Name:           name,
		AccountType:    accountType,
		InitialBalance: models.MustMoney(initial),
	}, actor)
	require.NoError(t, err)
	return a
}

func (f *fixture) post(t *testing.T, accountID int64, tt models.TransactionType, amount, date string) *models.Transaction {
	t.Helper()
	tx, err := f.txs.Post(f.ctx, models.TransactionInput{
		AccountID:       accountID,
		TransactionType: tt,
		Amount:          models.MustMoney(amount),
		TransactionDate: date,
		Description:     string(tt),
	}, actor)
	require.NoError(t, err)
	return tx
}

func (f *fixture) balance(t *testing.T, accountID int64) models.Money {
	t.Helper()
	a, err := f.accounts.Get(f.ctx, accountID)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

// requireBalancesConsistent checks balance == initial_balance + sum(amount) for every account.
func (f *fixture) requireBalancesConsistent(t *testing.T) {
	t.Helper()
	rows, err := f.db.Query(`
		SELECT a.id, a.balance, a.initial_balance + COALESCE((SELECT SUM(amount) FROM transactions WHERE account_id = a.id), 0)
		FROM accounts a`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id int64
		var balance, expected models.Money
		require.NoError(t, rows.Scan(&id, &balance, &expected))
		require.Equalf(t, expected, balance, "account %d balance drifted from its history", id)
	}
	require.NoError(t, rows.Err())
}

func collect(t *testing.T, seq iter.Seq2[models.Transaction, error]) []models.Transaction {
	t.Helper()
	var out []models.Transaction
	for tx, err := range seq {
		require.NoError(t, err)
		out = append(out, tx)
	}
	return out
}
