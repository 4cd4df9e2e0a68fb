package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// QuickActionUsecase manages a teacher's one-click presets ("Helped a
// classmate" +2.00, "Missing homework" -1.00) and applies them to students
// through the ledger.
type QuickActionUsecase struct {
	actions repository.QuickActionRepository
	ledger  *LedgerUsecase
	logger  *zap.Logger
}

func NewQuickActionUsecase(actions repository.QuickActionRepository, ledger *LedgerUsecase, logger *zap.Logger) *QuickActionUsecase {
	return &QuickActionUsecase{actions: actions, ledger: ledger, logger: logger}
}

func (uc *QuickActionUsecase) Create(ctx context.Context, teacherID int64, name string, amount decimal.Decimal, kind domain.QuickActionKind) (*domain.QuickAction, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", xerrors.ErrMissingRequired)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind must be reward or fine", xerrors.ErrInvalidInput)
	}
	amount = money.Normalize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: quick action amount must be positive", xerrors.ErrInvalidAmount)
	}

	return uc.actions.Create(ctx, &domain.QuickAction{
		TeacherID: teacherID,
		Name:      name,
		Amount:    amount,
		Kind:      kind,
	})
}

func (uc *QuickActionUsecase) List(ctx context.Context, teacherID int64) ([]*domain.QuickAction, error) {
	return uc.actions.ListByTeacher(ctx, teacherID)
}

func (uc *QuickActionUsecase) Delete(ctx context.Context, teacherID, id int64) error {
	return uc.actions.Delete(ctx, id, teacherID)
}

// Apply runs a preset against one student: reward credits, fine debits.
// Presets are owner scoped, so another teacher's preset reads as not found.
// A fine that would overdraw fails with ErrInsufficientBalance and writes
// nothing.
func (uc *QuickActionUsecase) Apply(ctx context.Context, teacherID, actionID, studentUserID int64) (*domain.Transaction, decimal.Decimal, error) {
	qa, err := uc.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if qa.TeacherID != teacherID {
		return nil, decimal.Zero, xerrors.ErrNotFound
	}

	var (
		entry      *domain.Transaction
		newBalance decimal.Decimal
	)
	switch qa.Kind {
	case domain.QuickActionReward:
		entry, newBalance, err = uc.ledger.postCredit(ctx, studentUserID, domain.KindReward, qa.Amount, qa.Name, teacherID)
	case domain.QuickActionFine:
		entry, newBalance, err = uc.ledger.postDebit(ctx, studentUserID, domain.KindFine, qa.Amount, qa.Name, teacherID)
	default:
		return nil, decimal.Zero, fmt.Errorf("%w: unknown quick action kind %q", xerrors.ErrInternalServer, qa.Kind)
	}
	if err != nil {
		return nil, decimal.Zero, err
	}

	uc.logger.Info("quick action applied",
		zap.Int64("action_id", qa.ID),
		zap.String("name", qa.Name),
		zap.String("kind", string(qa.Kind)),
		zap.Int64("student_user_id", studentUserID),
	)

	return entry, newBalance, nil
}
