package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds one student's classroom balance. The balance is never set
// from a client-supplied absolute figure: every change is a signed delta
// applied by the mutation rules, persisted together with its ledger entry.
type Account struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// StudentSummary is one roster row in the teacher's view.
type StudentSummary struct {
	UserID    int64  `json:"user_id"`
	AccountID int64  `json:"account_id"`
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Balance   string `json:"balance"` // fixed two-digit string
}
