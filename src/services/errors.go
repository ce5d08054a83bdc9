package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

// Error kinds returned by the ledger. Match them with errors.Is; use errors.As
// with the typed errors below to read their details.
var (
	ErrValidation          = validation.ErrValidationFailed
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAccountInactive     = errors.New("account inactive")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateName       = errors.New("duplicate name")
	ErrHasDependentRecords = errors.New("has dependent records")
	ErrStorage             = errors.New("storage failure")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func errBalanceOverflow(accountID int64) error {
	return &ValidationError{Field: "amount", Message: fmt.Sprintf("would overflow the balance of account %d", accountID)}
}

// asValidationError lifts a validation.FieldError into the ledger's error type.
func asValidationError(err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return err
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type PermissionDeniedError struct {
	ActorID   int64
	AccountID int64
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("actor %d has no write access to account %d", e.ActorID, e.AccountID)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

type AccountInactiveError struct {
	AccountID int64
}

func (e *AccountInactiveError) Error() string {
	return fmt.Sprintf("account %d is inactive", e.AccountID)
}

func (e *AccountInactiveError) Unwrap() error { return ErrAccountInactive }

type InsufficientFundsError struct {
	AccountID int64
	Balance   models.Money
	Requested models.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %d balance %s is below requested %s", e.AccountID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type DuplicateNameError struct {
	Entity string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s name %q already exists", e.Entity, e.Name)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

type HasDependentRecordsError struct {
	AccountID int64
	Count     int
}

func (e *HasDependentRecordsError) Error() string {
	return fmt.Sprintf("account %d is referenced by %d records", e.AccountID, e.Count)
}

func (e *HasDependentRecordsError) Unwrap() error { return ErrHasDependentRecords }

// StorageError wraps a failure of the underlying data store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// storageErr wraps err unless it already carries a ledger error kind.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isLedgerError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isLedgerError(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrPermissionDenied, ErrAccountInactive,
		ErrInsufficientFunds, ErrDuplicateName, ErrHasDependentRecords, ErrStorage,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// notFoundOr maps sql.ErrNoRows to a NotFoundError and anything else to a StorageError.
func notFoundOr(entity string, id int64, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return storageErr(op, err)
}
