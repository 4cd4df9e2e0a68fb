package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// Mutation is the computed outcome of applying one ledger operation to one
// account: the new balance plus the entry to append. The caller persists
// both in a single database transaction, which is what keeps
// sum(entries) == balance true at all times. Entry is nil when the
// operation legitimately skips the account (rent against a zero balance);
// a skipped mutation must not touch the store.
type Mutation struct {
	AccountID  int64
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
	Entry      *Transaction
}

func (m *Mutation) Skipped() bool { return m.Entry == nil }

// Credit adds amount to the account unconditionally. Used for paychecks,
// manual bonuses, quick-action rewards and opening deposits.
func Credit(acct *Account, kind TransactionKind, amount decimal.Decimal, description string, actorID int64) (*Mutation, error) {
	amount, err := checkAmount(kind, amount)
	if err != nil {
		return nil, err
	}

	old := money.Normalize(acct.Balance)
	return &Mutation{
		AccountID:  acct.ID,
		OldBalance: old,
		NewBalance: old.Add(amount),
		Entry: &Transaction{
			AccountID:   acct.ID,
			Kind:        kind,
			Amount:      amount,
			Description: description,
			ActorID:     actorID,
		},
	}, nil
}

// Debit subtracts amount from the account. Fails with ErrInsufficientBalance
// when the amount exceeds the current balance; the balance is left untouched.
// Used for manual subtractions, withdrawal approvals and quick-action fines.
func Debit(acct *Account, kind TransactionKind, amount decimal.Decimal, description string, actorID int64) (*Mutation, error) {
	amount, err := checkAmount(kind, amount)
	if err != nil {
		return nil, err
	}

	old := money.Normalize(acct.Balance)
	if amount.GreaterThan(old) {
		return nil, fmt.Errorf("%w: balance %s, requested %s",
			xerrors.ErrInsufficientBalance, money.Format(old), money.Format(amount))
	}
	return &Mutation{
		AccountID:  acct.ID,
		OldBalance: old,
		NewBalance: old.Sub(amount),
		Entry: &Transaction{
			AccountID:   acct.ID,
			Kind:        kind,
			Amount:      amount.Neg(),
			Description: description,
			ActorID:     actorID,
		},
	}, nil
}

// ChargeRent deducts up to amount, clamping the balance at zero. Accounts
// already at zero are skipped: no entry, no balance change. The entry
// records the amount actually deducted, not the amount requested.
func ChargeRent(acct *Account, amount decimal.Decimal, description string, actorID int64) (*Mutation, error) {
	amount, err := checkAmount(KindRent, amount)
	if err != nil {
		return nil, err
	}

	old := money.Normalize(acct.Balance)
	if old.IsZero() {
		return &Mutation{AccountID: acct.ID, OldBalance: old, NewBalance: old}, nil
	}

	deducted := decimal.Min(old, amount)
	return &Mutation{
		AccountID:  acct.ID,
		OldBalance: old,
		NewBalance: old.Sub(deducted),
		Entry: &Transaction{
			AccountID:   acct.ID,
			Kind:        KindRent,
			Amount:      deducted.Neg(),
			Description: description,
			ActorID:     actorID,
		},
	}, nil
}

func checkAmount(kind TransactionKind, amount decimal.Decimal) (decimal.Decimal, error) {
	if !kind.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown transaction kind %q", xerrors.ErrInvalidInput, kind)
	}
	amount = money.Normalize(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: got %s", xerrors.ErrInvalidAmount, amount.String())
	}
	return amount, nil
}
