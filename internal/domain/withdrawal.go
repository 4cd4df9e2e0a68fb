package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalDenied   WithdrawalStatus = "denied"
)

// WithdrawalRequest is a student's ask to take money out. It is created
// pending and transitions exactly once to approved or denied; approval
// deducts the balance and writes the matching ledger entry in the same
// database transaction as the status change.
type WithdrawalRequest struct {
	ID         int64            `json:"id"`
	AccountID  int64            `json:"account_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Reason     string           `json:"reason"`
	Status     WithdrawalStatus `json:"status"`
	ReviewerID *int64           `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// PendingWithdrawal is one row in the teacher's review queue: the request
// joined with who asked and what they currently hold.
type PendingWithdrawal struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	StudentName string    `json:"student_name"`
	Username    string    `json:"username"`
	Amount      string    `json:"amount"`
	Balance     string    `json:"balance"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}
