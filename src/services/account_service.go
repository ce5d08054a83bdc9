package services

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

type accountServiceImpl struct {
	ledger *Ledger
}

func NewAccountStore(ledger *Ledger) AccountStore {
	return &accountServiceImpl{ledger: ledger}
}

func (s *accountServiceImpl) Create(ctx context.Context, in models.NewAccount, actorID int64) (*models.Account, error) {
	log := logger.FromContext(ctx)

	name := validation.CleanText(in.Name)
	if err := validation.ValidateAccountName(name); err != nil {
		return nil, asValidationError(err)
	}
	if !in.AccountType.Valid() {
		return nil, &ValidationError{Field: "account_type", Message: fmt.Sprintf("%q is not a valid account type", in.AccountType)}
	}

	account := &models.Account{
		Name:           name,
		AccountType:    in.AccountType,
		InitialBalance: in.InitialBalance,
		UserID:         in.UserID,
	}
	err := s.ledger.atomic(ctx, "create account", func(tx *sql.Tx) error {
		exists, err := model.AccountNameExists(ctx, tx, name, 0)
		if err != nil {
			return storageErr("check account name", err)
		}
		if exists {
			return &DuplicateNameError{Entity: "account", Name: name}
		}
		return storageErr("insert account", model.InsertAccount(ctx, tx, account))
	})
	if err != nil {
		log.Warn("Account creation failed", "name", name, "actorID", actorID, "error", err)
		return nil, err
	}

	log.Info("Account created", "accountID", account.ID, "type", account.AccountType, "actorID", actorID)
	s.ledger.record(ctx, actorID, OpAccountCreate,
		fmt.Sprintf("created %s account #%d %q with initial balance %s",
			account.AccountType, account.ID, account.Name, s.ledger.format(account.InitialBalance)))
	return account, nil
}

func (s *accountServiceImpl) Get(ctx context.Context, id int64) (*models.Account, error) {
	return loadAccount(ctx, s.ledger.db, id)
}

func (s *accountServiceImpl) Update(ctx context.Context, id int64, fields models.AccountUpdate, actorID int64) (*models.Account, error) {
	log := logger.FromContext(ctx)

	if _, err := loadAccount(ctx, s.ledger.db, id); err != nil {
		return nil, err
	}
	if err := s.ledger.authorize(ctx, actorID, id); err != nil {
		log.Warn("Account update denied", "accountID", id, "actorID", actorID)
		return nil, err
	}

	var name string
	if fields.Name != nil {
		name = validation.CleanText(*fields.Name)
		if err := validation.ValidateAccountName(name); err != nil {
			return nil, asValidationError(err)
		}
	}
	if fields.AccountType != nil && !fields.AccountType.Valid() {
		return nil, &ValidationError{Field: "account_type", Message: fmt.Sprintf("%q is not a valid account type", *fields.AccountType)}
	}
	if fields.Status != nil && !fields.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a valid status", *fields.Status)}
	}

	var updated *models.Account
	err := s.ledger.atomic(ctx, "update account", func(tx *sql.Tx) error {
		account, err := loadAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		if fields.Name != nil {
			exists, err := model.AccountNameExists(ctx, tx, name, id)
			if err != nil {
				return storageErr("check account name", err)
			}
			if exists {
				return &DuplicateNameError{Entity: "account", Name: name}
			}
			account.Name = name
		}
		if fields.AccountType != nil {
			account.AccountType = *fields.AccountType
		}
		if fields.Status != nil {
			account.Status = *fields.Status
		}
		switch {
		case fields.ClearUserID:
			account.UserID = nil
		case fields.UserID != nil:
			owner := *fields.UserID
			account.UserID = &owner
		}
		if err := model.UpdateAccountFields(ctx, tx, account); err != nil {
			return notFoundOr("account", id, "update account", err)
		}
		updated = account
		return nil
	})
	if err != nil {
		log.Warn("Account update failed", "accountID", id, "actorID", actorID, "error", err)
		return nil, err
	}

	log.Info("Account updated", "accountID", id, "actorID", actorID)
	s.ledger.record(ctx, actorID, OpAccountUpdate,
		fmt.Sprintf("updated account #%d %q (%s, %s)", updated.ID, updated.Name, updated.AccountType, updated.Status))
	return updated, nil
}

func (s *accountServiceImpl) Delete(ctx context.Context, id int64, actorID int64) error {
	log := logger.FromContext(ctx)

	account, err := loadAccount(ctx, s.ledger.db, id)
	if err != nil {
		return err
	}
	if err := s.ledger.authorize(ctx, actorID, id); err != nil {
		return err
	}

	err = s.ledger.atomic(ctx, "delete account", func(tx *sql.Tx) error {
		n, err := model.CountAccountDependents(ctx, tx, id)
		if err != nil {
			return storageErr("count account dependents", err)
		}
		if n > 0 {
			return &HasDependentRecordsError{AccountID: id, Count: n}
		}
		return notFoundOr("account", id, "delete account", model.DeleteAccount(ctx, tx, id))
	})
	if err != nil {
		log.Warn("Account deletion failed", "accountID", id, "actorID", actorID, "error", err)
		return err
	}

	log.Info("Account deleted", "accountID", id, "actorID", actorID)
	s.ledger.record(ctx, actorID, OpAccountDelete, fmt.Sprintf("deleted account #%d %q", id, account.Name))
	return nil
}

func (s *accountServiceImpl) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	if filter.AccountType != "" && !filter.AccountType.Valid() {
		return nil, &ValidationError{Field: "account_type", Message: fmt.Sprintf("%q is not a valid account type", filter.AccountType)}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a valid status", filter.Status)}
	}
	accounts, err := model.ListAccounts(ctx, s.ledger.db, filter)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	return accounts, nil
}

// BalanceSummary is served from the report cache until the next ledger write.
func (s *accountServiceImpl) BalanceSummary(ctx context.Context) (*models.BalanceSummary, error) {
	if cached, found := s.ledger.cache.Get(ckBalanceSummary); found {
		return copySummary(cached.(*models.BalanceSummary)), nil
	}

	totals, err := model.SumBalancesByType(ctx, s.ledger.db)
	if err != nil {
		return nil, storageErr("sum balances", err)
	}
	summary := &models.BalanceSummary{
		ByType:   totals,
		NetWorth: totals[models.AccountTypeAsset] - totals[models.AccountTypeLiability] + totals[models.AccountTypeEquity],
	}
	s.ledger.cache.Set(ckBalanceSummary, summary, cache.DefaultExpiration)
	logger.FromContext(ctx).Debug("Balance summary computed", "netWorth", summary.NetWorth)
	return copySummary(summary), nil
}

func copySummary(s *models.BalanceSummary) *models.BalanceSummary {
	return &models.BalanceSummary{ByType: maps.Clone(s.ByType), NetWorth: s.NetWorth}
}

func (s *accountServiceImpl) TransactionSummary(ctx context.Context, accountID int64, start, end time.Time) (*models.TransactionSummary, error) {
	if err := validation.ValidateDateRange(start, end, "end_date"); err != nil {
		return nil, asValidationError(err)
	}
	if _, err := loadAccount(ctx, s.ledger.db, accountID); err != nil {
		return nil, err
	}

	inflow, outflow, count, err := model.SummarizeTransactions(ctx, s.ledger.db, accountID, start, end)
	if err != nil {
		return nil, storageErr("summarize transactions", err)
	}
	return &models.TransactionSummary{
		AccountID:    accountID,
		StartDate:    start,
		EndDate:      end,
		TotalInflow:  inflow,
		TotalOutflow: outflow,
		Net:          inflow + outflow,
		Count:        count,
	}, nil
}

var _ AccountStore = (*accountServiceImpl)(nil)
