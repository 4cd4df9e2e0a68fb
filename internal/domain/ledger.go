package domain

import "github.com/shopspring/decimal"

// PaycheckResult summarizes one paycheck run. Every student account is
// credited; a per-account failure is counted and the run continues.
type PaycheckResult struct {
	StudentsAffected int    `json:"students_affected"`
	Failed           int    `json:"failed,omitempty"`
	Amount           string `json:"amount"`
}

// RentResult summarizes one rent run. Skipped counts accounts that were
// already at zero and therefore got no ledger entry.
type RentResult struct {
	StudentsAffected int    `json:"students_affected"`
	Skipped          int    `json:"skipped"`
	Failed           int    `json:"failed,omitempty"`
	Amount           string `json:"amount"`
}

// LedgerView is one account with its recent entries. LedgerTotal is the sum
// of every entry ever written for the account; it equals Balance unless the
// ledger has been tampered with outside the application.
type LedgerView struct {
	Account     *Account
	Entries     []*Transaction
	LedgerTotal decimal.Decimal
}
