package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgercore/src/models"
)

func TestReconcileBalanced(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "Checking", models.AccountTypeAsset, "1000")
	f.post(t, acct.ID, models.TransactionTypeIncome, "500", "2024-01-10")
	f.post(t, acct.ID, models.TransactionTypeExpense, "120.40", "2024-01-20")
	outside := f.post(t, acct.ID, models.TransactionTypeExpense, "80", "2024-02-05")

	res, err := f.reconciler.Reconcile(f.ctx, acct.ID, date(t, "2024-01-01"), date(t, "2024-01-31"), actor)
	require.NoError(t, err)

	assert.True(t, res.IsBalanced)
	assert.Equal(t, "Checking", res.AccountName)
	assert.Equal(t, models.MustMoney("1299.60"), res.TheoreticalBalance, "every transaction counts, not only the range")
	assert.Equal(t, res.TheoreticalBalance, res.ActualBalance)
	assert.Equal(t, models.Money(0), res.Difference)
	assert.Equal(t, 2, res.TransactionCount)
	assert.Equal(t, 2, res.MarkedReconciled)

	assert.Equal(t, 2, f.count(t, `SELECT COUNT(*) FROM transactions WHERE reconciliation_flag = 'reconciled'`))
	stillOpen, err := f.txs.Get(f.ctx, outside.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Unreconciled, stillOpen.ReconciliationFlag)

	logs, err := f.reconciler.Logs(f.ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, res.LogID, logs[0].ID)
	assert.Equal(t, models.ReconciliationBalanced, logs[0].Status)
	assert.Equal(t, actor, logs[0].ReconciledBy)
	assert.Equal(t, "2024-01-31", logs[0].EndDate.Format(models.DateLayout))
}

func TestReconcileMismatch(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "Checking", models.AccountTypeAsset, "1000")
	f.post(t, acct.ID, models.TransactionTypeIncome, "500", "2024-01-10")

	_, err := f.db.Exec(`UPDATE accounts SET balance = balance + 5 WHERE id = ?`, acct.ID)
	require.NoError(t, err)

	res, err := f.reconciler.Reconcile(f.ctx, acct.ID, date(t, "2024-01-01"), date(t, "2024-01-31"), actor)
	require.NoError(t, err)
	assert.False(t, res.IsBalanced)
	assert.Equal(t, models.MustMoney("1505"), res.ActualBalance)
	assert.Equal(t, models.MustMoney("1500"), res.TheoreticalBalance)
	assert.Equal(t, models.MustMoney("5"), res.Difference)
	assert.Zero(t, res.MarkedReconciled)
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transactions WHERE reconciliation_flag = 'reconciled'`))

	logs, err := f.reconciler.Logs(f.ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ReconciliationUnbalanced, logs[0].Status)
	assert.Equal(t, models.MustMoney("5"), logs[0].Difference)
}

func TestReconcileRecordsEveryRun(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "Checking", models.AccountTypeAsset, "0")

	first, err := f.reconciler.Reconcile(f.ctx, acct.ID, date(t, "2024-01-01"), date(t, "2024-01-31"), actor)
	require.NoError(t, err)
	second, err := f.reconciler.Reconcile(f.ctx, acct.ID, date(t, "2024-02-01"), date(t, "2024-02-29"), actor)
	require.NoError(t, err)

	logs, err := f.reconciler.Logs(f.ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, second.LogID, logs[0].ID, "newest first")
	assert.Equal(t, first.LogID, logs[1].ID)

	_, err = f.db.Exec(`DELETE FROM reconciliation_logs WHERE id = ?`, first.LogID)
	assert.Error(t, err, "logs are append-only")
	assert.ErrorIs(t, f.accounts.Delete(f.ctx, acct.ID, actor), ErrHasDependentRecords)
}

func TestReconcileErrors(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "Checking", models.AccountTypeAsset, "0")

	_, err := f.reconciler.Reconcile(f.ctx, 999, date(t, "2024-01-01"), date(t, "2024-01-31"), actor)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.reconciler.Reconcile(f.ctx, acct.ID, date(t, "2024-02-01"), date(t, "2024-01-31"), actor)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.reconciler.Logs(f.ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
