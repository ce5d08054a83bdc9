package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

type reversalServiceImpl struct {
	ledger *Ledger
}

func NewReversalHandler(ledger *Ledger) ReversalHandler {
	return &reversalServiceImpl{ledger: ledger}
}

// Reverse appends a transaction of the opposite type and negated amount on the
// original's account. The original row is left untouched. Each transaction
// can be reversed once; a reversal can itself be reversed.
func (s *reversalServiceImpl) Reverse(ctx context.Context, transactionID int64, reason string, actorID int64) (*models.Transaction, error) {
	log := logger.FromContext(ctx).With("transactionID", transactionID, "actorID", actorID)

	original, err := loadTransaction(ctx, s.ledger.db, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.authorize(ctx, actorID, original.AccountID); err != nil {
		log.Warn("Reversal denied", "accountID", original.AccountID)
		return nil, err
	}
	reason = validation.CleanText(reason)
	if err := validation.ValidateStringMaxLength(reason, validation.MaxDescriptionLength/2, "reason"); err != nil {
		return nil, asValidationError(err)
	}

	var reversal *models.Transaction
	err = s.ledger.atomic(ctx, "reverse transaction", func(tx *sql.Tx) error {
		current, err := loadTransaction(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if _, err := loadActiveAccount(ctx, tx, current.AccountID); err != nil {
			return err
		}
		reversed, err := model.IsTransactionReversed(ctx, tx, current.ID)
		if err != nil {
			return storageErr("check reversal", err)
		}
		if reversed {
			return &ValidationError{Field: "transaction_id", Message: fmt.Sprintf("transaction %d has already been reversed", current.ID)}
		}

		originalID := current.ID
		reversal = &models.Transaction{
			AccountID:             current.AccountID,
			CategoryID:            current.CategoryID,
			TransactionType:       current.TransactionType.Opposite(),
			Amount:                current.Amount.Neg(),
			TransactionDate:       today(),
			Description:           reversalDescription(originalID, reason),
			CreatedBy:             actorID,
			ReversesTransactionID: &originalID,
		}
		return s.ledger.insertPosting(ctx, tx, reversal)
	})
	if err != nil {
		log.Warn("Reversal failed", "error", err)
		return nil, err
	}

	log.Info("Transaction reversed", "reversalID", reversal.ID, "accountID", reversal.AccountID, "amount", reversal.Amount)
	s.ledger.record(ctx, actorID, OpReversal,
		fmt.Sprintf("reversed transaction #%d with #%d (%s on account #%d)",
			transactionID, reversal.ID, s.ledger.format(reversal.Amount), reversal.AccountID))
	return reversal, nil
}

func reversalDescription(originalID int64, reason string) string {
	if reason == "" {
		return fmt.Sprintf("Reversal of transaction #%d", originalID)
	}
	return fmt.Sprintf("Reversal of transaction #%d: %s", originalID, reason)
}

var _ ReversalHandler = (*reversalServiceImpl)(nil)
