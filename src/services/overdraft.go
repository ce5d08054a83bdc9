package services

import (
	"github.com/username/ledgercore/src/models"
)

// OverdraftPolicy lists the account types whose balance may go below zero.
type OverdraftPolicy struct {
	allowed map[models.AccountType]bool
}

// NewOverdraftPolicy builds a policy from account type names. Unknown names are
// ignored.
func NewOverdraftPolicy(types []string) OverdraftPolicy {
	p := OverdraftPolicy{allowed: make(map[models.AccountType]bool, len(types))}
	for _, name := range types {
		t := models.AccountType(name)
		if t.Valid() {
			p.allowed[t] = true
		}
	}
	return p
}

func (p OverdraftPolicy) Allows(t models.AccountType) bool {
	return p.allowed[t]
}

// check returns an InsufficientFundsError when applying delta would take the
// account negative and its type may not overdraw.
func (p OverdraftPolicy) check(a *models.Account, delta models.Money) error {
	if !delta.IsNegative() || p.Allows(a.AccountType) {
		return nil
	}
	balance, ok := a.Balance.Add(delta)
	if !ok {
		return errBalanceOverflow(a.ID)
	}
	if balance < 0 {
		return &InsufficientFundsError{AccountID: a.ID, Balance: a.Balance, Requested: delta.Neg()}
	}
	return nil
}
