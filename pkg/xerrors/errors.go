package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGErrorCode extracts the SQLSTATE code from a pgx error, e.g. 23505
// for unique_violation. Returns "unknown" for non-postgres errors.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
)

// Authentication / authorization
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// Input validation
var (
	ErrInvalidInput    = errors.New("invalid input provided")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrMissingRequired = errors.New("required field missing")
)

// Ledger rules
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyResolved     = errors.New("withdrawal request already resolved")
)

// Enrollment
var (
	ErrUsernameTaken = errors.New("username already in use")
)
