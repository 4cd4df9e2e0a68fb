package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListStudents(ctx context.Context) ([]*domain.StudentSummary, error)
}

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) UserRepository {
	return &userRepo{db: db}
}

// Create inserts a user inside the caller's transaction so enrollment can
// create the user, the account and the opening deposit atomically.
func (r *userRepo) Create(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.User, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO users (username, full_name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	saved := *user
	err := tx.QueryRow(ctx, query,
		user.Username,
		user.FullName,
		user.PasswordHash,
		string(user.Role),
	).Scan(&saved.ID, &saved.CreatedAt)

	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, xerrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &saved, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, full_name, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`

	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, full_name, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`

	var u domain.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

// ListStudents returns the roster ordered by name, one row per student with
// the current balance joined in.
func (r *userRepo) ListStudents(ctx context.Context) ([]*domain.StudentSummary, error) {
	query := `
		SELECT u.id, a.id, u.full_name, u.username, a.balance
		FROM users u
		INNER JOIN accounts a ON a.user_id = u.id
		WHERE u.role = 'student'
		ORDER BY u.full_name, u.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*domain.StudentSummary
	for rows.Next() {
		var s domain.StudentSummary
		var balance decimal.Decimal
		if err := rows.Scan(&s.UserID, &s.AccountID, &s.FullName, &s.Username, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		s.Balance = money.Format(balance)
		students = append(students, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}

	return students, nil
}
