package model

import (
	"context"
	"time"

	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
)

func InsertAuditEntry(ctx context.Context, q database.DBTX, actorID int64, operationType, description string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_logs (actor_id, operation_type, description, created_at) VALUES (?, ?, ?, ?)`,
		actorID, operationType, description, time.Now().UTC(),
	)
	return err
}

// ListAuditEntries returns the most recent entries first. A zero actorID
// lists every actor; limit <= 0 returns all.
func ListAuditEntries(ctx context.Context, q database.DBTX, actorID int64, limit int) ([]models.AuditEntry, error) {
	query := `SELECT id, actor_id, operation_type, description, created_at FROM audit_logs`
	var args []any
	if actorID != 0 {
		query += ` WHERE actor_id = ?`
		args = append(args, actorID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.OperationType, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
