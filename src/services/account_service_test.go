package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgercore/src/models"
)

func TestAccountCreate(t *testing.T) {
	f := newFixture(t)

	a := f.account(t, "  Savings <i>EUR</i> ", models.AccountTypeAsset, "250.75")
	assert.Equal(t, "Savings EUR", a.Name)
	assert.Equal(t, models.MustMoney("250.75"), a.Balance)
	assert.Equal(t, models.MustMoney("250.75"), a.InitialBalance)
	assert.Equal(t, models.AccountStatusActive, a.Status)

	tests := []struct {
		name string
		in   models.NewAccount
		kind error
	}{
		{"empty name", models.NewAccount{Name: "  ", AccountType: models.AccountTypeAsset}, ErrValidation},
		{"markup only", models.NewAccount{Name: "<script>x</script>", AccountType: models.AccountTypeAsset}, ErrValidation},
		{"bad type", models.NewAccount{Name: "Other", AccountType: "cash"}, ErrValidation},
		{"duplicate ignoring case", models.NewAccount{Name: "SAVINGS eur", AccountType: models.AccountTypeAsset}, ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Create(f.ctx, tt.in, actor)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestAccountGetUpdate(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "Checking", models.AccountTypeAsset, "100")
	f.account(t, "Savings", models.AccountTypeAsset, "0")

	_, err := f.accounts.Get(f.ctx, 999)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "account", nf.Entity)
	assert.Equal(t, int64(999), nf.ID)

	name := "Main checking"
	liability := models.AccountTypeLiability
	owner := int64(5)
	updated, err := f.accounts.Update(f.ctx, a.ID, models.AccountUpdate{Name: &name, AccountType: &liability, UserID: &owner}, actor)
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, liability, updated.AccountType)
	require.NotNil(t, updated.UserID)
	assert.Equal(t, owner, *updated.UserID)
	assert.Equal(t, models.MustMoney("100"), updated.Balance, "update never touches the balance")

	cleared, err := f.accounts.Update(f.ctx, a.ID, models.AccountUpdate{ClearUserID: true}, actor)
	require.NoError(t, err)
	assert.Nil(t, cleared.UserID)

	taken := "savings"
	_, err = f.accounts.Update(f.ctx, a.ID, models.AccountUpdate{Name: &taken}, actor)
	assert.ErrorIs(t, err, ErrDuplicateName)

	same := "MAIN CHECKING"
	_, err = f.accounts.Update(f.ctx, a.ID, models.AccountUpdate{Name: &same}, actor)
	assert.NoError(t, err, "renaming to a different case of its own name is allowed")

	badStatus := models.AccountStatus("closed")
	_, err = f.accounts.Update(f.ctx, a.ID, models.AccountUpdate{Status: &badStatus}, actor)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.accounts.Update(f.ctx, 999, models.AccountUpdate{Name: &name}, actor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountDelete(t *testing.T) {
	f := newFixture(t)
	empty := f.account(t, "Empty", models.AccountTypeAsset, "0")
	used := f.account(t, "Used", models.AccountTypeAsset, "0")
	f.post(t, used.ID, models.TransactionTypeIncome, "1", "2024-01-01")

	require.NoError(t, f.accounts.Delete(f.ctx, empty.ID, actor))
	_, err := f.accounts.Get(f.ctx, empty.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.accounts.Delete(f.ctx, used.ID, actor)
	require.ErrorIs(t, err, ErrHasDependentRecords)
	var dep *HasDependentRecordsError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, 1, dep.Count)

	assert.ErrorIs(t, f.accounts.Delete(f.ctx, empty.ID, actor), ErrNotFound)
}

func TestAccountList(t *testing.T) {
	f := newFixture(t)
	f.account(t, "zeta savings", models.AccountTypeAsset, "0")
	f.account(t, "Alpha checking", models.AccountTypeAsset, "0")
	loan := f.account(t, "Mortgage", models.AccountTypeLiability, "0")
	inactive := models.AccountStatusInactive
	_, err := f.accounts.Update(f.ctx, loan.ID, models.AccountUpdate{Status: &inactive}, actor)
	require.NoError(t, err)

	names := func(accounts []models.Account) []string {
		var out []string
		for _, a := range accounts {
			out = append(out, a.Name)
		}
		return out
	}

	all, err := f.accounts.List(f.ctx, models.AccountFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha checking", "Mortgage", "zeta savings"}, names(all))

	assets, err := f.accounts.List(f.ctx, models.AccountFilter{AccountType: models.AccountTypeAsset})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha checking", "zeta savings"}, names(assets))

	inactiveOnly, err := f.accounts.List(f.ctx, models.AccountFilter{Status: models.AccountStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mortgage"}, names(inactiveOnly))

	matching, err := f.accounts.List(f.ctx, models.AccountFilter{NamePattern: "CHECK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha checking"}, names(matching))

	none, err := f.accounts.List(f.ctx, models.AccountFilter{NamePattern: "%"})
	require.NoError(t, err)
	assert.Empty(t, none, "LIKE wildcards in the pattern are literal")

	_, err = f.accounts.List(f.ctx, models.AccountFilter{AccountType: "cash"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBalanceSummary(t *testing.T) {
	f := newFixture(t)
	cash := f.account(t, "Cash", models.AccountTypeAsset, "1000")
	f.account(t, "Loan", models.AccountTypeLiability, "300")
	f.account(t, "Capital", models.AccountTypeEquity, "50")

	summary, err := f.accounts.BalanceSummary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("1000"), summary.ByType[models.AccountTypeAsset])
	assert.Equal(t, models.Money(0), summary.ByType[models.AccountTypeIncome])
	assert.Len(t, summary.ByType, len(models.AccountTypes))
	assert.Equal(t, models.MustMoney("750"), summary.NetWorth)

	summary.ByType[models.AccountTypeAsset] = 0
	again, err := f.accounts.BalanceSummary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("1000"), again.ByType[models.AccountTypeAsset], "callers cannot corrupt the cached summary")

	f.post(t, cash.ID, models.TransactionTypeIncome, "25", "2024-01-01")
	after, err := f.accounts.BalanceSummary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("775"), after.NetWorth, "ledger writes invalidate the cached summary")
}

func TestTransactionSummary(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "Checking", models.AccountTypeAsset, "1000")
	f.post(t, acct.ID, models.TransactionTypeIncome, "400", "2024-03-01")
	f.post(t, acct.ID, models.TransactionTypeExpense, "150", "2024-03-15")
	f.post(t, acct.ID, models.TransactionTypeExpense, "20", "2024-03-31")
	f.post(t, acct.ID, models.TransactionTypeIncome, "999", "2024-04-01")

	summary, err := f.accounts.TransactionSummary(f.ctx, acct.ID, date(t, "2024-03-01"), date(t, "2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, models.MustMoney("400"), summary.TotalInflow)
	assert.Equal(t, models.MustMoney("-170"), summary.TotalOutflow)
	assert.Equal(t, models.MustMoney("230"), summary.Net)
	assert.Equal(t, 3, summary.Count)

	_, err = f.accounts.TransactionSummary(f.ctx, acct.ID, date(t, "2024-04-01"), date(t, "2024-03-01"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.accounts.TransactionSummary(f.ctx, 999, date(t, "2024-03-01"), date(t, "2024-03-31"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	groceries, err := f.categories.Create(f.ctx, "Groceries", models.CategoryTypeExpense)
	require.NoError(t, err)
	_, err = f.categories.Create(f.ctx, "Salary", models.CategoryTypeIncome)
	require.NoError(t, err)

	_, err = f.categories.Create(f.ctx, "groceries", models.CategoryTypeExpense)
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = f.categories.Create(f.ctx, "Rent", "transfer")
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.categories.Get(f.ctx, groceries.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
	_, err = f.categories.Get(f.ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := f.categories.List(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	expenses, err := f.categories.List(f.ctx, models.CategoryTypeExpense)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, groceries.ID, expenses[0].ID)
}
