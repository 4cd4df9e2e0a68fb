package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

type AccountRepository interface {
	// Create opens an account at zero. Opening deposits go through the
	// credit path so the first balance change has a matching ledger entry.
	Create(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Account, error)

	// Locked reads for balance mutations (SELECT ... FOR UPDATE).
	GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error)
	GetByUserIDWithLock(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Account, error)

	// ListIDs returns every account id, for batch operations that lock and
	// mutate one account per transaction.
	ListIDs(ctx context.Context) ([]int64, error)

	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID int64, newBalance decimal.Decimal) error
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO accounts (user_id, balance, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		RETURNING id, user_id, balance, created_at, updated_at
	`

	var a domain.Account
	err := tx.QueryRow(ctx, query, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.get(ctx, r.db, "id", id, false)
}

func (r *accountRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Account, error) {
	return r.get(ctx, r.db, "user_id", userID, false)
}

func (r *accountRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}
	return r.get(ctx, tx, "id", id, true)
}

func (r *accountRepo) GetByUserIDWithLock(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}
	return r.get(ctx, tx, "user_id", userID, true)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *accountRepo) get(ctx context.Context, q rowQuerier, column string, id int64, lock bool) (*domain.Account, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, balance, created_at, updated_at
		FROM accounts
		WHERE %s = $1
	`, column)
	if lock {
		query += " FOR UPDATE"
	}

	var a domain.Account
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &a, nil
}

func (r *accountRepo) ListIDs(ctx context.Context) ([]int64, error) {
	query := `
		SELECT a.id
		FROM accounts a
		INNER JOIN users u ON u.id = a.user_id
		WHERE u.role = 'student'
		ORDER BY a.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list account ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account ids: %w", err)
	}

	return ids, nil
}

// UpdateBalance writes the already-computed balance. Callers must hold the
// row lock from GetByIDWithLock in the same transaction.
func (r *accountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID int64, newBalance decimal.Decimal) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := tx.Exec(ctx, query, newBalance, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
