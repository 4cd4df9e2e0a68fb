package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
)

type TransactionRepository interface {
	// Insert appends one ledger entry. Always called in the same transaction
	// as the balance update it belongs to.
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error)
	// SumByAccount totals the signed entry amounts; by construction this
	// equals the account balance.
	SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) (*domain.Transaction, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO transactions (reference, account_id, kind, amount, description, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	saved := *entry
	err := tx.QueryRow(ctx, query,
		entry.Reference,
		entry.AccountID,
		string(entry.Kind),
		entry.Amount,
		entry.Description,
		entry.ActorID,
	).Scan(&saved.ID, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return &saved, nil
}

func (r *transactionRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, reference, account_id, kind, amount, description, actor_id, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID,
			&t.Reference,
			&t.AccountID,
			&t.Kind,
			&t.Amount,
			&t.Description,
			&t.ActorID,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		entries = append(entries, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return entries, nil
}

func (r *transactionRepo) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1
	`

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return total, nil
}
