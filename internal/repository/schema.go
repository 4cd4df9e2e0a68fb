package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations are applied in order at startup. Statements are idempotent so
// a restart against an existing database is a no-op.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('teacher','student')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		balance    NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGSERIAL PRIMARY KEY,
		reference   TEXT NOT NULL UNIQUE,
		account_id  BIGINT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
		kind        TEXT NOT NULL CHECK (kind IN ('deposit','withdrawal','paycheck','bonus','fine','reward','rent')),
		amount      NUMERIC(12,2) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		actor_id    BIGINT NOT NULL REFERENCES users(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_account_created
		ON transactions (account_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id          BIGSERIAL PRIMARY KEY,
		account_id  BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		amount      NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		reason      TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','approved','denied')),
		reviewer_id BIGINT REFERENCES users(id),
		reviewed_at TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_pending
		ON withdrawal_requests (created_at) WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS quick_actions (
		id         BIGSERIAL PRIMARY KEY,
		teacher_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		amount     NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		kind       TEXT NOT NULL CHECK (kind IN ('reward','fine')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate runs every migration statement against the pool.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range Migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
