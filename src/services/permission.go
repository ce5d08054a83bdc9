package services

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/username/ledgercore/src/model"
)

// OwnershipPermissions grants write access to shared accounts, to the owner of
// a private account, and to administrators on everything. Unknown accounts are
// denied.
type OwnershipPermissions struct {
	db       *sql.DB
	adminIDs []int64
}

func NewOwnershipPermissions(db *sql.DB, adminIDs []int64) *OwnershipPermissions {
	return &OwnershipPermissions{db: db, adminIDs: slices.Clone(adminIDs)}
}

func (p *OwnershipPermissions) HasWritePermission(ctx context.Context, actorID int64, resourceType string, resourceID int64) (bool, error) {
	if slices.Contains(p.adminIDs, actorID) {
		return true, nil
	}
	if resourceType != ResourceAccount {
		return false, nil
	}

	account, err := model.GetAccountByID(ctx, p.db, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if account.UserID == nil {
		return true, nil
	}
	return *account.UserID == actorID, nil
}

// AllowAll grants every request. Used by local tooling and tests.
type AllowAll struct{}

func (AllowAll) HasWritePermission(context.Context, int64, string, int64) (bool, error) {
	return true, nil
}

var (
	_ PermissionChecker = (*OwnershipPermissions)(nil)
	_ PermissionChecker = AllowAll{}
)
