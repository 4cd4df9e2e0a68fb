package domain

import "github.com/shopspring/decimal"

// ClassStats is the teacher dashboard snapshot. Read-only aggregate, taken
// in a single snapshot without cross-account locking.
type ClassStats struct {
	Students           int             `json:"students"`
	TotalBalance       decimal.Decimal `json:"total_balance"`
	PendingWithdrawals int             `json:"pending_withdrawals"`
	PaychecksLast7Days decimal.Decimal `json:"paychecks_last_7_days"`
}
