package model

import (
	"context"
	"fmt"
	"time"

	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
)

// InsertReconciliationLog appends l. Rows are never updated afterwards.
func InsertReconciliationLog(ctx context.Context, q database.DBTX, l *models.ReconciliationLog) error {
	l.ReconciledAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO reconciliation_logs (account_id, start_date, end_date, expected_balance, actual_balance,
		                                 difference, status, transaction_count, reconciled_by, reconciled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.AccountID, l.StartDate.Format(models.DateLayout), l.EndDate.Format(models.DateLayout),
		l.ExpectedBalance, l.ActualBalance, l.Difference, l.Status, l.TransactionCount, l.ReconciledBy, l.ReconciledAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

// ListReconciliationLogs returns the account's logs, newest first.
func ListReconciliationLogs(ctx context.Context, q database.DBTX, accountID int64) ([]models.ReconciliationLog, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, account_id, start_date, end_date, expected_balance, actual_balance, difference,
		       status, transaction_count, reconciled_by, reconciled_at
		FROM reconciliation_logs
		WHERE account_id = ?
		ORDER BY id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.ReconciliationLog{}
	for rows.Next() {
		var l models.ReconciliationLog
		var start, end string
		if err := rows.Scan(&l.ID, &l.AccountID, &start, &end, &l.ExpectedBalance, &l.ActualBalance,
			&l.Difference, &l.Status, &l.TransactionCount, &l.ReconciledBy, &l.ReconciledAt); err != nil {
			return nil, err
		}
		if l.StartDate, err = time.Parse(models.DateLayout, start); err != nil {
			return nil, fmt.Errorf("reconciliation log %d: %w", l.ID, err)
		}
		if l.EndDate, err = time.Parse(models.DateLayout, end); err != nil {
			return nil, fmt.Errorf("reconciliation log %d: %w", l.ID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
