package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	publisher "github.com/ReadWriteReboot/ClassroomBank/internal/pub"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// AccountUsecase covers enrollment and the roster views.
type AccountUsecase struct {
	db      DB
	users   repository.UserRepository
	account repository.AccountRepository

	ledger *LedgerUsecase
	events *publisher.LedgerEventPublisher
	stats  *StatsUsecase
	logger *zap.Logger
}

func NewAccountUsecase(
	db DB,
	users repository.UserRepository,
	account repository.AccountRepository,
	ledger *LedgerUsecase,
	events *publisher.LedgerEventPublisher,
	stats *StatsUsecase,
	logger *zap.Logger,
) *AccountUsecase {
	return &AccountUsecase{
		db:      db,
		users:   users,
		account: account,
		ledger:  ledger,
		events:  events,
		stats:   stats,
		logger:  logger,
	}
}

// EnrollStudent creates the user, their account and an optional opening
// deposit in one transaction. The deposit goes through the credit rule so
// the very first balance already has its explaining entry.
func (uc *AccountUsecase) EnrollStudent(ctx context.Context, actorID int64, fullName, username, password string, openingDeposit decimal.Decimal) (*domain.User, *domain.Account, error) {
	fullName = strings.TrimSpace(fullName)
	username = strings.ToLower(strings.TrimSpace(username))
	if fullName == "" || username == "" {
		return nil, nil, fmt.Errorf("%w: full name and username are required", xerrors.ErrMissingRequired)
	}
	if len(username) < 3 {
		return nil, nil, fmt.Errorf("%w: username must be at least 3 characters", xerrors.ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, nil, fmt.Errorf("%w: password must be at least 6 characters", xerrors.ErrInvalidInput)
	}
	openingDeposit = money.Normalize(openingDeposit)
	if openingDeposit.IsNegative() {
		return nil, nil, fmt.Errorf("%w: opening deposit cannot be negative", xerrors.ErrInvalidAmount)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := uc.users.Create(ctx, tx, &domain.User{
		Username:     username,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         domain.RoleStudent,
	})
	if err != nil {
		return nil, nil, err
	}

	acct, err := uc.account.Create(ctx, tx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	var m *domain.Mutation
	if openingDeposit.IsPositive() {
		m, err = domain.Credit(acct, domain.KindDeposit, openingDeposit, "Opening deposit", actorID)
		if err != nil {
			return nil, nil, err
		}
		if _, err := uc.ledger.postLocked(ctx, tx, m); err != nil {
			return nil, nil, err
		}
		acct.Balance = m.NewBalance
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	uc.logger.Info("student enrolled",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("opening_balance", money.Format(acct.Balance)),
	)
	if err := uc.events.PublishStudentEnrolled(ctx, acct.ID, user.ID, money.Format(acct.Balance)); err != nil {
		uc.logger.Warn("failed to publish enrollment event", zap.Error(err))
	}
	uc.stats.InvalidateCache(ctx)

	return user, acct, nil
}

// ListStudents is the teacher's roster.
func (uc *AccountUsecase) ListStudents(ctx context.Context) ([]*domain.StudentSummary, error) {
	return uc.users.ListStudents(ctx)
}

// Overview returns the caller's user record plus an account when one exists.
// Teachers hold no account, so theirs comes back nil.
func (uc *AccountUsecase) Overview(ctx context.Context, userID int64) (*domain.User, *domain.Account, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	acct, err := uc.account.GetByUserID(ctx, userID)
	if err != nil {
		if user.Role == domain.RoleTeacher && errors.Is(err, xerrors.ErrNotFound) {
			return user, nil, nil
		}
		return nil, nil, err
	}

	return user, acct, nil
}
