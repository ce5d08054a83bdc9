package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

// queryBatchSize is how many rows Query reads per round trip.
const queryBatchSize = 100

type transactionServiceImpl struct {
	ledger *Ledger
}

func NewTransactionLedger(ledger *Ledger) TransactionLedger {
	return &transactionServiceImpl{ledger: ledger}
}

func (s *transactionServiceImpl) Post(ctx context.Context, in models.TransactionInput, actorID int64) (*models.Transaction, error) {
	log := logger.FromContext(ctx).With("accountID", in.AccountID, "actorID", actorID)
	log.Debug("Posting transaction", "type", in.TransactionType)

	if err := s.ledger.authorize(ctx, actorID, in.AccountID); err != nil {
		log.Warn("Transaction post denied", "error", err)
		return nil, err
	}
	t, err := prepareTransaction(in, actorID)
	if err != nil {
		return nil, err
	}

	err = s.ledger.atomic(ctx, "post transaction", func(tx *sql.Tx) error {
		account, err := resolveTransactionRefs(ctx, tx, t)
		if err != nil {
			return err
		}
		if err := s.ledger.policy.check(account, t.Amount); err != nil {
			return err
		}
		return s.ledger.insertPosting(ctx, tx, t)
	})
	if err != nil {
		log.Warn("Transaction post failed", "error", err)
		return nil, err
	}

	log.Info("Transaction posted", "transactionID", t.ID, "amount", t.Amount)
	s.ledger.record(ctx, actorID, OpTransactionPost,
		fmt.Sprintf("posted %s #%d of %s to account #%d", t.TransactionType, t.ID, s.ledger.format(t.Amount), t.AccountID))
	return t, nil
}

func (s *transactionServiceImpl) Update(ctx context.Context, id int64, in models.TransactionInput, actorID int64) (*models.Transaction, error) {
	log := logger.FromContext(ctx).With("transactionID", id, "actorID", actorID)

	prior, err := loadTransaction(ctx, s.ledger.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.authorize(ctx, actorID, prior.AccountID); err != nil {
		log.Warn("Transaction update denied", "accountID", prior.AccountID)
		return nil, err
	}
	if in.AccountID != prior.AccountID {
		if err := s.ledger.authorize(ctx, actorID, in.AccountID); err != nil {
			log.Warn("Transaction update denied", "accountID", in.AccountID)
			return nil, err
		}
	}
	t, err := prepareTransaction(in, actorID)
	if err != nil {
		return nil, err
	}

	var old models.Transaction
	err = s.ledger.atomic(ctx, "update transaction", func(tx *sql.Tx) error {
		current, err := loadTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkMutable(ctx, tx, current, true); err != nil {
			return err
		}
		if _, err := loadActiveAccount(ctx, tx, current.AccountID); err != nil {
			return err
		}
		account, err := resolveTransactionRefs(ctx, tx, t)
		if err != nil {
			return err
		}

		sameAccount := current.AccountID == t.AccountID
		delta, ok := t.Amount.Sub(current.Amount)
		if sameAccount && !ok {
			return errBalanceOverflow(t.AccountID)
		}
		if sameAccount {
			err = s.ledger.policy.check(account, delta)
		} else {
			err = s.ledger.policy.check(account, t.Amount)
		}
		if err != nil {
			return err
		}

		t.ID = current.ID
		t.CreatedBy = current.CreatedBy
		t.CreatedAt = current.CreatedAt
		t.ReconciliationFlag = current.ReconciliationFlag
		if err := model.UpdateTransactionRow(ctx, tx, t); err != nil {
			return notFoundOr("transaction", id, "update transaction", err)
		}
		if err := s.ledger.step(stepRowWritten); err != nil {
			return err
		}

		old = *current
		if sameAccount {
			return s.ledger.applyBalance(ctx, tx, t.AccountID, delta)
		}
		if err := s.ledger.applyBalance(ctx, tx, current.AccountID, current.Amount.Neg()); err != nil {
			return err
		}
		return s.ledger.applyBalance(ctx, tx, t.AccountID, t.Amount)
	})
	if err != nil {
		log.Warn("Transaction update failed", "error", err)
		return nil, err
	}

	log.Info("Transaction updated", "oldAmount", old.Amount, "newAmount", t.Amount)
	s.ledger.record(ctx, actorID, OpTransactionUpdate,
		fmt.Sprintf("updated transaction #%d: %s on account #%d -> %s on account #%d",
			t.ID, s.ledger.format(old.Amount), old.AccountID, s.ledger.format(t.Amount), t.AccountID))
	return t, nil
}

func (s *transactionServiceImpl) Delete(ctx context.Context, id int64, actorID int64) error {
	log := logger.FromContext(ctx).With("transactionID", id, "actorID", actorID)

	prior, err := loadTransaction(ctx, s.ledger.db, id)
	if err != nil {
		return err
	}
	if err := s.ledger.authorize(ctx, actorID, prior.AccountID); err != nil {
		log.Warn("Transaction delete denied", "accountID", prior.AccountID)
		return err
	}

	var deleted *models.Transaction
	err = s.ledger.atomic(ctx, "delete transaction", func(tx *sql.Tx) error {
		current, err := loadTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkMutable(ctx, tx, current, false); err != nil {
			return err
		}
		if _, err := loadActiveAccount(ctx, tx, current.AccountID); err != nil {
			return err
		}
		if err := model.DeleteTransactionRow(ctx, tx, id); err != nil {
			return notFoundOr("transaction", id, "delete transaction", err)
		}
		if err := s.ledger.step(stepRowWritten); err != nil {
			return err
		}
		deleted = current
		return s.ledger.applyBalance(ctx, tx, current.AccountID, current.Amount.Neg())
	})
	if err != nil {
		log.Warn("Transaction delete failed", "error", err)
		return err
	}

	log.Info("Transaction deleted", "accountID", deleted.AccountID, "amount", deleted.Amount)
	s.ledger.record(ctx, actorID, OpTransactionDelete,
		fmt.Sprintf("deleted %s #%d of %s from account #%d",
			deleted.TransactionType, deleted.ID, s.ledger.format(deleted.Amount), deleted.AccountID))
	return nil
}

func (s *transactionServiceImpl) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return loadTransaction(ctx, s.ledger.db, id)
}

func (s *transactionServiceImpl) Query(ctx context.Context, filter models.TransactionFilter, page models.Page) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		if err := validateTransactionFilter(filter); err != nil {
			yield(models.Transaction{}, err)
			return
		}

		var cursor *model.TransactionCursor
		skipped, emitted := 0, 0
		for {
			batch, err := model.QueryTransactions(ctx, s.ledger.db, filter, cursor, queryBatchSize)
			if err != nil {
				yield(models.Transaction{}, storageErr("query transactions", err))
				return
			}
			for _, t := range batch {
				if skipped < page.Offset {
					skipped++
					continue
				}
				if page.Limit > 0 && emitted >= page.Limit {
					return
				}
				emitted++
				if !yield(t, nil) {
					return
				}
			}
			if len(batch) < queryBatchSize {
				return
			}
			last := batch[len(batch)-1]
			cursor = &model.TransactionCursor{Date: last.TransactionDate.Format(models.DateLayout), ID: last.ID}
		}
	}
}

func validateTransactionFilter(f models.TransactionFilter) error {
	if f.TransactionType != "" && !f.TransactionType.Valid() {
		return &ValidationError{Field: "transaction_type", Message: fmt.Sprintf("%q is not a valid transaction type", f.TransactionType)}
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() {
		if err := validation.ValidateDateRange(f.StartDate, f.EndDate, "end_date"); err != nil {
			return asValidationError(err)
		}
	}
	return nil
}

// prepareTransaction validates caller input and builds the row to store, with
// the amount signed for its type.
func prepareTransaction(in models.TransactionInput, actorID int64) (*models.Transaction, error) {
	if err := validation.ValidateID(in.AccountID, "account_id"); err != nil {
		return nil, asValidationError(err)
	}
	if !in.TransactionType.Valid() || in.TransactionType.IsTransferLeg() {
		return nil, &ValidationError{Field: "transaction_type", Message: "must be income or expense"}
	}
	if err := validation.ValidateNonZeroAmount(in.Amount, "amount"); err != nil {
		return nil, asValidationError(err)
	}
	date, err := validation.ValidateDateString(in.TransactionDate, "transaction_date")
	if err != nil {
		return nil, asValidationError(err)
	}
	if in.CategoryID != nil {
		if err := validation.ValidateID(*in.CategoryID, "category_id"); err != nil {
			return nil, asValidationError(err)
		}
	}
	description := validation.CleanText(in.Description)
	if err := validation.ValidateDescription(description); err != nil {
		return nil, asValidationError(err)
	}

	return &models.Transaction{
		AccountID:       in.AccountID,
		CategoryID:      in.CategoryID,
		TransactionType: in.TransactionType,
		Amount:          in.TransactionType.Normalize(in.Amount),
		TransactionDate: date,
		Description:     description,
		CreatedBy:       actorID,
	}, nil
}

// resolveTransactionRefs checks that t's account and category exist and fit,
// returning the account.
func resolveTransactionRefs(ctx context.Context, q database.DBTX, t *models.Transaction) (*models.Account, error) {
	account, err := loadActiveAccount(ctx, q, t.AccountID)
	if errors.Is(err, ErrNotFound) {
		return nil, &ValidationError{Field: "account_id", Message: fmt.Sprintf("account %d does not exist", t.AccountID)}
	}
	if err != nil {
		return nil, err
	}

	if t.CategoryID != nil {
		category, err := model.GetCategoryByID(ctx, q, *t.CategoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ValidationError{Field: "category_id", Message: fmt.Sprintf("category %d does not exist", *t.CategoryID)}
		}
		if err != nil {
			return nil, storageErr("load category", err)
		}
		if !category.CategoryType.Accepts(t.TransactionType) {
			return nil, &ValidationError{
				Field:   "category_id",
				Message: fmt.Sprintf("category %q is for %s, not %s", category.Name, category.CategoryType, t.TransactionType),
			}
		}
	}
	return account, nil
}

// checkMutable rejects edits that would break a transfer or a reversal pair.
// Reversal rows may be deleted but not edited.
func checkMutable(ctx context.Context, q database.DBTX, t *models.Transaction, editing bool) error {
	if t.TransactionType.IsTransferLeg() {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("transaction %d is a transfer leg; reverse it instead", t.ID)}
	}
	if editing && t.ReversesTransactionID != nil {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("transaction %d is a reversal and cannot be edited", t.ID)}
	}
	reversed, err := model.IsTransactionReversed(ctx, q, t.ID)
	if err != nil {
		return storageErr("check reversal", err)
	}
	if reversed {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("transaction %d has been reversed", t.ID)}
	}
	return nil
}

var _ TransactionLedger = (*transactionServiceImpl)(nil)
