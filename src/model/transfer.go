package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
)

func InsertTransferRecord(ctx context.Context, q database.DBTX, r *models.TransferRecord) error {
	r.CreatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO transfer_records (from_transaction_id, to_transaction_id, amount, transfer_date, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.FromTransactionID, r.ToTransactionID, r.Amount, r.TransferDate.Format(models.DateLayout),
		r.Description, r.CreatedBy, r.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// GetTransferByTransactionID finds the transfer either leg belongs to.
// It returns sql.ErrNoRows when transactionID is not a transfer leg.
func GetTransferByTransactionID(ctx context.Context, q database.DBTX, transactionID int64) (*models.TransferRecord, error) {
	var r models.TransferRecord
	var date string
	err := q.QueryRowContext(ctx, `
		SELECT id, from_transaction_id, to_transaction_id, amount, transfer_date, description, created_by, created_at
		FROM transfer_records
		WHERE from_transaction_id = ? OR to_transaction_id = ?`, transactionID, transactionID,
	).Scan(&r.ID, &r.FromTransactionID, &r.ToTransactionID, &r.Amount, &date, &r.Description, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	if r.TransferDate, err = time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("transfer %d has malformed date %q: %w", r.ID, date, err)
	}
	return &r, nil
}
