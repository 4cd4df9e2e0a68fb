package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
)

type StatsRepository interface {
	Snapshot(ctx context.Context) (*domain.ClassStats, error)
}

type statsRepo struct {
	db *pgxpool.Pool
}

func NewStatsRepo(db *pgxpool.Pool) StatsRepository {
	return &statsRepo{db: db}
}

// Snapshot aggregates the class view in one round trip. The subselects run
// in a single statement so the numbers are from one consistent snapshot.
func (r *statsRepo) Snapshot(ctx context.Context) (*domain.ClassStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COALESCE(SUM(a.balance), 0)
				FROM accounts a
				INNER JOIN users u ON u.id = a.user_id
				WHERE u.role = 'student'),
			(SELECT COUNT(*) FROM withdrawal_requests WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0)
				FROM transactions
				WHERE kind = 'paycheck' AND created_at >= $1)
	`

	since := time.Now().AddDate(0, 0, -7)

	var s domain.ClassStats
	err := r.db.QueryRow(ctx, query, since).Scan(
		&s.Students,
		&s.TotalBalance,
		&s.PendingWithdrawals,
		&s.PaychecksLast7Days,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot class stats: %w", err)
	}

	return &s, nil
}
