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

const transactionColumns = `id, account_id, category_id, transaction_type, amount, transaction_date, description,
	created_by, reconciliation_flag, reverses_transaction_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	var categoryID, reverses sql.NullInt64
	var date string
	err := row.Scan(
		&t.ID, &t.AccountID, &categoryID, &t.TransactionType, &t.Amount, &date, &t.Description,
		&t.CreatedBy, &t.ReconciliationFlag, &reverses, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.TransactionDate, err = time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("transaction %d has malformed date %q: %w", t.ID, date, err)
	}
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
	}
	if reverses.Valid {
		id := reverses.Int64
		t.ReversesTransactionID = &id
	}
	return &t, nil
}

// InsertTransaction stores t and sets its ID and timestamps.
func InsertTransaction(ctx context.Context, q database.DBTX, t *models.Transaction) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ReconciliationFlag == "" {
		t.ReconciliationFlag = models.Unreconciled
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (account_id, category_id, transaction_type, amount, transaction_date, description,
		                          created_by, reconciliation_flag, reverses_transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, nullableID(t.CategoryID), t.TransactionType, t.Amount, t.TransactionDate.Format(models.DateLayout),
		t.Description, t.CreatedBy, t.ReconciliationFlag, nullableID(t.ReversesTransactionID), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// GetTransactionByID returns sql.ErrNoRows when the transaction does not exist.
func GetTransactionByID(ctx context.Context, q database.DBTX, id int64) (*models.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return t, nil
}

// UpdateTransactionRow rewrites the editable columns of t.
func UpdateTransactionRow(ctx context.Context, q database.DBTX, t *models.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, transaction_type = ?, amount = ?, transaction_date = ?,
		    description = ?, updated_at = ?
		WHERE id = ?`,
		t.AccountID, nullableID(t.CategoryID), t.TransactionType, t.Amount, t.TransactionDate.Format(models.DateLayout),
		t.Description, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func DeleteTransactionRow(ctx context.Context, q database.DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// IsTransactionReversed reports whether a reversal references id.
func IsTransactionReversed(ctx context.Context, q database.DBTX, id int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE reverses_transaction_id = ?`, id).Scan(&n)
	return n > 0, err
}

// TransactionCursor is the keyset position after the last row returned.
type TransactionCursor struct {
	Date string
	ID   int64
}

// QueryTransactions returns up to limit rows matching f that sort after cursor,
// ordered by transaction_date DESC, id DESC. A nil cursor starts from the top.
func QueryTransactions(ctx context.Context, q database.DBTX, f models.TransactionFilter, cursor *TransactionCursor, limit int) ([]models.Transaction, error) {
	where, args := transactionFilterClause(f)
	if cursor != nil {
		where = append(where, "(transaction_date < ? OR (transaction_date = ? AND id < ?))")
		args = append(args, cursor.Date, cursor.Date, cursor.ID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY transaction_date DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func transactionFilterClause(f models.TransactionFilter) ([]string, []any) {
	var where []string
	var args []any
	if f.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.TransactionType != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, f.TransactionType)
	}
	if !f.StartDate.IsZero() {
		where = append(where, "transaction_date >= ?")
		args = append(args, f.StartDate.Format(models.DateLayout))
	}
	if !f.EndDate.IsZero() {
		where = append(where, "transaction_date <= ?")
		args = append(args, f.EndDate.Format(models.DateLayout))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `description LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(s)+"%")
	}
	return where, args
}

// SumTransactionAmounts is the signed total of every transaction on the account.
func SumTransactionAmounts(ctx context.Context, q database.DBTX, accountID int64) (models.Money, error) {
	var sum models.Money
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = ?`, accountID,
	).Scan(&sum)
	return sum, err
}

// SummarizeTransactions totals inflows, outflows and count for the account in [start, end].
func SummarizeTransactions(ctx context.Context, q database.DBTX, accountID int64, start, end time.Time) (inflow, outflow models.Money, count int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END), 0),
		       COUNT(*)
		FROM transactions
		WHERE account_id = ? AND transaction_date BETWEEN ? AND ?`,
		accountID, start.Format(models.DateLayout), end.Format(models.DateLayout),
	).Scan(&inflow, &outflow, &count)
	return inflow, outflow, count, err
}

// MarkTransactionsReconciled flags the account's transactions dated in [start, end].
func MarkTransactionsReconciled(ctx context.Context, q database.DBTX, accountID int64, start, end time.Time) (int, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions SET reconciliation_flag = ?, updated_at = ?
		WHERE account_id = ? AND transaction_date BETWEEN ? AND ? AND reconciliation_flag <> ?`,
		models.Reconciled, time.Now().UTC(), accountID,
		start.Format(models.DateLayout), end.Format(models.DateLayout), models.Reconciled,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
