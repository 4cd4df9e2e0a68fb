package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the business reason for a ledger entry.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindPaycheck   TransactionKind = "paycheck"
	KindBonus      TransactionKind = "bonus"
	KindFine       TransactionKind = "fine"
	KindReward     TransactionKind = "reward"
	KindRent       TransactionKind = "rent"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindPaycheck, KindBonus, KindFine, KindReward, KindRent:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry. Amount is signed: credits
// positive, debits negative. For every account the sum of entry amounts
// equals the stored balance at all times.
type Transaction struct {
	ID          int64           `json:"id"`
	Reference   string          `json:"reference"`
	AccountID   int64           `json:"account_id"`
	Kind        TransactionKind `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ActorID     int64           `json:"actor_id"`
	CreatedAt   time.Time       `json:"created_at"`
}
