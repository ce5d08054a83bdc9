package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
)

// DBAuditSink appends entries to the audit_logs table.
type DBAuditSink struct {
	db *sql.DB
}

func NewDBAuditSink(db *sql.DB) *DBAuditSink {
	return &DBAuditSink{db: db}
}

func (s *DBAuditSink) LogOperation(ctx context.Context, actorID int64, operationType, description string) error {
	return model.InsertAuditEntry(ctx, s.db, actorID, operationType, description)
}

// Recent returns the newest entries recorded for actorID, or for everyone
// when actorID is zero. limit <= 0 returns all of them.
func (s *DBAuditSink) Recent(ctx context.Context, actorID int64, limit int) ([]models.AuditEntry, error) {
	entries, err := model.ListAuditEntries(ctx, s.db, actorID, limit)
	if err != nil {
		return nil, storageErr("list audit entries", err)
	}
	return entries, nil
}

// LogAuditSink writes entries to the structured log.
type LogAuditSink struct{}

func (LogAuditSink) LogOperation(ctx context.Context, actorID int64, operationType, description string) error {
	logger.FromContext(ctx).Info("audit", "actorID", actorID, "operation", operationType, "description", description)
	return nil
}

// MultiAuditSink forwards each entry to every sink, even when one fails.
type MultiAuditSink []AuditSink

func (m MultiAuditSink) LogOperation(ctx context.Context, actorID int64, operationType, description string) error {
	var errs []error
	for _, sink := range m {
		if err := sink.LogOperation(ctx, actorID, operationType, description); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ AuditSink = (*DBAuditSink)(nil)
	_ AuditLog  = (*DBAuditSink)(nil)
	_ AuditSink = LogAuditSink{}
	_ AuditSink = MultiAuditSink(nil)
)
