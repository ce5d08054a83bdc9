package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

type transferServiceImpl struct {
	ledger *Ledger
}

func NewTransferCoordinator(ledger *Ledger) TransferCoordinator {
	return &transferServiceImpl{ledger: ledger}
}

// Transfer posts a transfer_out leg on the source and a transfer_in leg on the
// destination, linked by one transfer record. Nothing is written unless all
// of it is.
func (s *transferServiceImpl) Transfer(ctx context.Context, req models.TransferRequest, actorID int64) (*models.TransferResult, error) {
	operationID := uuid.NewString()
	log := logger.FromContext(ctx).With("operationID", operationID, "actorID", actorID,
		"fromAccountID", req.FromAccountID, "toAccountID", req.ToAccountID)
	log.Debug("Transfer requested", "amount", req.Amount)

	date, description, err := validateTransfer(req)
	if err != nil {
		return nil, err
	}
	for _, accountID := range []int64{req.FromAccountID, req.ToAccountID} {
		if _, err := loadAccount(ctx, s.ledger.db, accountID); err != nil {
			return nil, err
		}
	}
	for _, accountID := range []int64{req.FromAccountID, req.ToAccountID} {
		if err := s.ledger.authorize(ctx, actorID, accountID); err != nil {
			log.Warn("Transfer denied", "accountID", accountID)
			return nil, err
		}
	}

	record := &models.TransferRecord{
		Amount:       req.Amount,
		TransferDate: date,
		Description:  description,
		CreatedBy:    actorID,
	}
	err = s.ledger.atomic(ctx, "transfer", func(tx *sql.Tx) error {
		from, err := loadActiveAccount(ctx, tx, req.FromAccountID)
		if err != nil {
			return err
		}
		to, err := loadActiveAccount(ctx, tx, req.ToAccountID)
		if err != nil {
			return err
		}
		if err := s.ledger.policy.check(from, req.Amount.Neg()); err != nil {
			return err
		}

		out := &models.Transaction{
			AccountID:       from.ID,
			TransactionType: models.TransactionTypeTransferOut,
			Amount:          req.Amount.Neg(),
			TransactionDate: date,
			Description:     legDescription(description, "Transfer to", to.Name),
			CreatedBy:       actorID,
		}
		if err := s.ledger.insertPosting(ctx, tx, out); err != nil {
			return err
		}
		if err := s.ledger.step(stepFirstLegWritten); err != nil {
			return err
		}

		in := &models.Transaction{
			AccountID:       to.ID,
			TransactionType: models.TransactionTypeTransferIn,
			Amount:          req.Amount,
			TransactionDate: date,
			Description:     legDescription(description, "Transfer from", from.Name),
			CreatedBy:       actorID,
		}
		if err := s.ledger.insertPosting(ctx, tx, in); err != nil {
			return err
		}

		record.FromTransactionID = out.ID
		record.ToTransactionID = in.ID
		return storageErr("insert transfer record", model.InsertTransferRecord(ctx, tx, record))
	})
	if err != nil {
		log.Warn("Transfer failed", "error", err)
		return nil, err
	}

	log.Info("Transfer completed", "transferID", record.ID,
		"fromTransactionID", record.FromTransactionID, "toTransactionID", record.ToTransactionID)
	s.ledger.record(ctx, actorID, OpTransfer,
		fmt.Sprintf("transfer %s #%d: %s from account #%d (transaction #%d) to account #%d (transaction #%d)",
			operationID, record.ID, s.ledger.format(req.Amount),
			req.FromAccountID, record.FromTransactionID, req.ToAccountID, record.ToTransactionID))

	return &models.TransferResult{
		TransferID:        record.ID,
		FromTransactionID: record.FromTransactionID,
		ToTransactionID:   record.ToTransactionID,
	}, nil
}

func (s *transferServiceImpl) ForTransaction(ctx context.Context, transactionID int64) (*models.TransferRecord, error) {
	if _, err := loadTransaction(ctx, s.ledger.db, transactionID); err != nil {
		return nil, err
	}
	record, err := model.GetTransferByTransactionID(ctx, s.ledger.db, transactionID)
	if err != nil {
		return nil, notFoundOr("transfer for transaction", transactionID, "load transfer", err)
	}
	return record, nil
}

func validateTransfer(req models.TransferRequest) (time.Time, string, error) {
	if err := validation.ValidateID(req.FromAccountID, "from_account_id"); err != nil {
		return time.Time{}, "", asValidationError(err)
	}
	if err := validation.ValidateID(req.ToAccountID, "to_account_id"); err != nil {
		return time.Time{}, "", asValidationError(err)
	}
	if req.FromAccountID == req.ToAccountID {
		return time.Time{}, "", &ValidationError{Field: "to_account_id", Message: "must differ from from_account_id"}
	}
	if err := validation.ValidatePositiveAmount(req.Amount, "amount"); err != nil {
		return time.Time{}, "", asValidationError(err)
	}

	date := today()
	if req.TransferDate != "" {
		d, err := validation.ValidateDateString(req.TransferDate, "transfer_date")
		if err != nil {
			return time.Time{}, "", asValidationError(err)
		}
		date = d
	}

	description := validation.CleanText(req.Description)
	if err := validation.ValidateDescription(description); err != nil {
		return time.Time{}, "", asValidationError(err)
	}
	return date, description, nil
}

func legDescription(description, prefix, counterparty string) string {
	if description != "" {
		return description
	}
	return prefix + " " + counterparty
}

var _ TransferCoordinator = (*transferServiceImpl)(nil)
