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
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

type WithdrawalRepository interface {
	Create(ctx context.Context, req *domain.WithdrawalRequest) (*domain.WithdrawalRequest, error)
	GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error)
	// GetByIDWithLock locks the request row so two reviewers cannot resolve
	// the same ticket concurrently.
	GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.WithdrawalRequest, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*domain.WithdrawalRequest, error)
	ListPending(ctx context.Context) ([]*domain.PendingWithdrawal, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, id int64, status domain.WithdrawalStatus, reviewerID int64) error
}

type withdrawalRepo struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepo(db *pgxpool.Pool) WithdrawalRepository {
	return &withdrawalRepo{db: db}
}

func (r *withdrawalRepo) Create(ctx context.Context, req *domain.WithdrawalRequest) (*domain.WithdrawalRequest, error) {
	query := `
		INSERT INTO withdrawal_requests (account_id, amount, reason, status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		RETURNING id, status, created_at
	`

	saved := *req
	err := r.db.QueryRow(ctx, query,
		req.AccountID,
		req.Amount,
		req.Reason,
	).Scan(&saved.ID, &saved.Status, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	return &saved, nil
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	return r.get(ctx, r.db, id, false)
}

func (r *withdrawalRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.WithdrawalRequest, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}
	return r.get(ctx, tx, id, true)
}

func (r *withdrawalRepo) get(ctx context.Context, q rowQuerier, id int64, lock bool) (*domain.WithdrawalRequest, error) {
	query := `
		SELECT id, account_id, amount, reason, status, reviewer_id, reviewed_at, created_at
		FROM withdrawal_requests
		WHERE id = $1
	`
	if lock {
		query += " FOR UPDATE"
	}

	var w domain.WithdrawalRequest
	err := q.QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.AccountID,
		&w.Amount,
		&w.Reason,
		&w.Status,
		&w.ReviewerID,
		&w.ReviewedAt,
		&w.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}

	return &w, nil
}

func (r *withdrawalRepo) ListByAccount(ctx context.Context, accountID int64) ([]*domain.WithdrawalRequest, error) {
	query := `
		SELECT id, account_id, amount, reason, status, reviewer_id, reviewed_at, created_at
		FROM withdrawal_requests
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.WithdrawalRequest
	for rows.Next() {
		var w domain.WithdrawalRequest
		err := rows.Scan(
			&w.ID,
			&w.AccountID,
			&w.Amount,
			&w.Reason,
			&w.Status,
			&w.ReviewerID,
			&w.ReviewedAt,
			&w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal row: %w", err)
		}
		reqs = append(reqs, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal rows: %w", err)
	}

	return reqs, nil
}

// ListPending returns the review queue oldest-first, each row joined with
// the requesting student and their current balance.
func (r *withdrawalRepo) ListPending(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	query := `
		SELECT w.id, w.account_id, u.full_name, u.username, w.amount, a.balance, w.reason, w.created_at
		FROM withdrawal_requests w
		INNER JOIN accounts a ON a.id = w.account_id
		INNER JOIN users u ON u.id = a.user_id
		WHERE w.status = 'pending'
		ORDER BY w.created_at, w.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var pending []*domain.PendingWithdrawal
	for rows.Next() {
		var p domain.PendingWithdrawal
		var amount, balance decimal.Decimal
		err := rows.Scan(
			&p.ID,
			&p.AccountID,
			&p.StudentName,
			&p.Username,
			&amount,
			&balance,
			&p.Reason,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending withdrawal row: %w", err)
		}
		p.Amount = money.Format(amount)
		p.Balance = money.Format(balance)
		pending = append(pending, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending withdrawal rows: %w", err)
	}

	return pending, nil
}

// MarkReviewed flips a pending request to its final status. The WHERE guard
// on status makes the transition single-shot even without the row lock.
func (r *withdrawalRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id int64, status domain.WithdrawalStatus, reviewerID int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE withdrawal_requests
		SET status = $1, reviewer_id = $2, reviewed_at = $3
		WHERE id = $4 AND status = 'pending'
	`

	cmdTag, err := tx.Exec(ctx, query, string(status), reviewerID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark withdrawal reviewed: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrAlreadyResolved
	}

	return nil
}
