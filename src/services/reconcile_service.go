package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

type reconcileServiceImpl struct {
	ledger *Ledger
}

func NewReconciler(ledger *Ledger) Reconciler {
	return &reconcileServiceImpl{ledger: ledger}
}

// Reconcile compares the stored balance with the initial balance plus every
// transaction ever posted to the account. The date range only selects which
// transactions are counted and, when the balances agree, marked reconciled.
// A log row is appended whatever the outcome.
func (s *reconcileServiceImpl) Reconcile(ctx context.Context, accountID int64, start, end time.Time, actorID int64) (*models.ReconciliationResult, error) {
	log := logger.FromContext(ctx).With("accountID", accountID, "actorID", actorID)

	if start.IsZero() || end.IsZero() {
		return nil, &ValidationError{Field: "start_date", Message: "start and end dates are required"}
	}
	if err := validation.ValidateDateRange(start, end, "end_date"); err != nil {
		return nil, asValidationError(err)
	}
	if _, err := loadAccount(ctx, s.ledger.db, accountID); err != nil {
		return nil, err
	}
	if err := s.ledger.authorize(ctx, actorID, accountID); err != nil {
		log.Warn("Reconciliation denied")
		return nil, err
	}

	var result models.ReconciliationResult
	err := s.ledger.atomic(ctx, "reconcile account", func(tx *sql.Tx) error {
		account, err := loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		sum, err := model.SumTransactionAmounts(ctx, tx, accountID)
		if err != nil {
			return storageErr("sum transactions", err)
		}
		_, _, inRange, err := model.SummarizeTransactions(ctx, tx, accountID, start, end)
		if err != nil {
			return storageErr("count transactions", err)
		}

		theoretical := account.InitialBalance + sum
		difference := account.Balance - theoretical
		entry := &models.ReconciliationLog{
			AccountID:        accountID,
			StartDate:        start,
			EndDate:          end,
			ExpectedBalance:  theoretical,
			ActualBalance:    account.Balance,
			Difference:       difference,
			Status:           models.ReconciliationUnbalanced,
			TransactionCount: inRange,
			ReconciledBy:     actorID,
		}
		if difference.IsZero() {
			entry.Status = models.ReconciliationBalanced
		}
		if err := model.InsertReconciliationLog(ctx, tx, entry); err != nil {
			return storageErr("insert reconciliation log", err)
		}
		if err := s.ledger.step(stepLogWritten); err != nil {
			return err
		}

		marked := 0
		if difference.IsZero() {
			if marked, err = model.MarkTransactionsReconciled(ctx, tx, accountID, start, end); err != nil {
				return storageErr("mark transactions reconciled", err)
			}
		}

		result = models.ReconciliationResult{
			LogID:              entry.ID,
			AccountID:          accountID,
			AccountName:        account.Name,
			ActualBalance:      account.Balance,
			TheoreticalBalance: theoretical,
			Difference:         difference,
			IsBalanced:         difference.IsZero(),
			TransactionCount:   inRange,
			MarkedReconciled:   marked,
		}
		return nil
	})
	if err != nil {
		log.Warn("Reconciliation failed", "error", err)
		return nil, err
	}

	if result.IsBalanced {
		log.Info("Account reconciled", "balance", result.ActualBalance, "marked", result.MarkedReconciled)
	} else {
		log.Warn("Account balance does not match transaction history",
			"actual", result.ActualBalance, "theoretical", result.TheoreticalBalance, "difference", result.Difference)
	}
	s.ledger.record(ctx, actorID, OpReconcile,
		fmt.Sprintf("reconciled account #%d for %s..%s: actual %s, theoretical %s, difference %s",
			accountID, start.Format(models.DateLayout), end.Format(models.DateLayout),
			s.ledger.format(result.ActualBalance), s.ledger.format(result.TheoreticalBalance), s.ledger.format(result.Difference)))
	return &result, nil
}

func (s *reconcileServiceImpl) Logs(ctx context.Context, accountID int64) ([]models.ReconciliationLog, error) {
	if _, err := loadAccount(ctx, s.ledger.db, accountID); err != nil {
		return nil, err
	}
	logs, err := model.ListReconciliationLogs(ctx, s.ledger.db, accountID)
	if err != nil {
		return nil, storageErr("list reconciliation logs", err)
	}
	return logs, nil
}

var _ Reconciler = (*reconcileServiceImpl)(nil)
