package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
)

const accountColumns = `id, name, account_type, initial_balance, balance, status, user_id, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	var userID sql.NullInt64
	err := row.Scan(
		&a.ID, &a.Name, &a.AccountType, &a.InitialBalance, &a.Balance,
		&a.Status, &userID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		a.UserID = &id
	}
	return &a, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// InsertAccount stores a new account and sets its ID. Balance starts at InitialBalance.
func InsertAccount(ctx context.Context, q database.DBTX, a *models.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Balance = a.InitialBalance
	if a.Status == "" {
		a.Status = models.AccountStatusActive
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO accounts (name, account_type, initial_balance, balance, status, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.AccountType, a.InitialBalance, a.Balance, a.Status, nullableID(a.UserID), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// GetAccountByID returns sql.ErrNoRows when the account does not exist.
func GetAccountByID(ctx context.Context, q database.DBTX, id int64) (*models.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return a, nil
}

// AccountNameExists reports whether another account (not excludeID) uses name, ignoring case.
func AccountNameExists(ctx context.Context, q database.DBTX, name string, excludeID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE name = ? COLLATE NOCASE AND id <> ?`, name, excludeID,
	).Scan(&n)
	return n > 0, err
}

// UpdateAccountFields writes the descriptive columns of a. It never touches balance.
func UpdateAccountFields(ctx context.Context, q database.DBTX, a *models.Account) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE accounts SET name = ?, account_type = ?, status = ?, user_id = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, a.AccountType, a.Status, nullableID(a.UserID), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// AdjustAccountBalance adds delta to the stored balance of account id.
func AdjustAccountBalance(ctx context.Context, q database.DBTX, id int64, delta models.Money) error {
	res, err := q.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		delta, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// CountAccountDependents counts rows that reference the account.
func CountAccountDependents(ctx context.Context, q database.DBTX, id int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM transactions WHERE account_id = ?)
		     + (SELECT COUNT(*) FROM reconciliation_logs WHERE account_id = ?)`, id, id,
	).Scan(&n)
	return n, err
}

func DeleteAccount(ctx context.Context, q database.DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ListAccounts returns the accounts matching f ordered by name.
func ListAccounts(ctx context.Context, q database.DBTX, f models.AccountFilter) ([]models.Account, error) {
	var where []string
	var args []any
	if f.AccountType != "" {
		where = append(where, "account_type = ?")
		args = append(args, f.AccountType)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if p := strings.TrimSpace(f.NamePattern); p != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(p)+"%")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE ASC, id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// SumBalancesByType totals stored balances per account type.
func SumBalancesByType(ctx context.Context, q database.DBTX) (map[models.AccountType]models.Money, error) {
	rows, err := q.QueryContext(ctx, `SELECT account_type, COALESCE(SUM(balance), 0) FROM accounts GROUP BY account_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[models.AccountType]models.Money, len(models.AccountTypes))
	for _, t := range models.AccountTypes {
		totals[t] = 0
	}
	for rows.Next() {
		var t models.AccountType
		var sum models.Money
		if err := rows.Scan(&t, &sum); err != nil {
			return nil, err
		}
		totals[t] = sum
	}
	return totals, rows.Err()
}

var errUnexpectedRowCount = errors.New("unexpected affected row count")

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	if n != 1 {
		return fmt.Errorf("%w: %d", errUnexpectedRowCount, n)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
