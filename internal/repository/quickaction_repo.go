package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

type QuickActionRepository interface {
	Create(ctx context.Context, qa *domain.QuickAction) (*domain.QuickAction, error)
	GetByID(ctx context.Context, id int64) (*domain.QuickAction, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*domain.QuickAction, error)
	// Delete is owner-scoped: a teacher can only remove their own presets.
	Delete(ctx context.Context, id, teacherID int64) error
}

type quickActionRepo struct {
	db *pgxpool.Pool
}

func NewQuickActionRepo(db *pgxpool.Pool) QuickActionRepository {
	return &quickActionRepo{db: db}
}

func (r *quickActionRepo) Create(ctx context.Context, qa *domain.QuickAction) (*domain.QuickAction, error) {
	query := `
		INSERT INTO quick_actions (teacher_id, name, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	saved := *qa
	err := r.db.QueryRow(ctx, query,
		qa.TeacherID,
		qa.Name,
		qa.Amount,
		string(qa.Kind),
	).Scan(&saved.ID, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create quick action: %w", err)
	}

	return &saved, nil
}

func (r *quickActionRepo) GetByID(ctx context.Context, id int64) (*domain.QuickAction, error) {
	query := `
		SELECT id, teacher_id, name, amount, kind, created_at
		FROM quick_actions
		WHERE id = $1
	`

	var qa domain.QuickAction
	err := r.db.QueryRow(ctx, query, id).Scan(
		&qa.ID,
		&qa.TeacherID,
		&qa.Name,
		&qa.Amount,
		&qa.Kind,
		&qa.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quick action: %w", err)
	}

	return &qa, nil
}

func (r *quickActionRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]*domain.QuickAction, error) {
	query := `
		SELECT id, teacher_id, name, amount, kind, created_at
		FROM quick_actions
		WHERE teacher_id = $1
		ORDER BY name, id
	`

	rows, err := r.db.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quick actions: %w", err)
	}
	defer rows.Close()

	var actions []*domain.QuickAction
	for rows.Next() {
		var qa domain.QuickAction
		err := rows.Scan(
			&qa.ID,
			&qa.TeacherID,
			&qa.Name,
			&qa.Amount,
			&qa.Kind,
			&qa.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quick action row: %w", err)
		}
		actions = append(actions, &qa)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quick action rows: %w", err)
	}

	return actions, nil
}

func (r *quickActionRepo) Delete(ctx context.Context, id, teacherID int64) error {
	query := `
		DELETE FROM quick_actions
		WHERE id = $1 AND teacher_id = $2
	`

	cmdTag, err := r.db.Exec(ctx, query, id, teacherID)
	if err != nil {
		return fmt.Errorf("failed to delete quick action: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
