package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	publisher "github.com/ReadWriteReboot/ClassroomBank/internal/pub"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// WithdrawalUsecase runs the request lifecycle: a student submits, a teacher
// approves or denies, and each request resolves exactly once.
type WithdrawalUsecase struct {
	db          DB
	withdrawals repository.WithdrawalRepository
	account     repository.AccountRepository

	ledger *LedgerUsecase
	events *publisher.LedgerEventPublisher
	stats  *StatsUsecase
	logger *zap.Logger
}

func NewWithdrawalUsecase(
	db DB,
	withdrawals repository.WithdrawalRepository,
	account repository.AccountRepository,
	ledger *LedgerUsecase,
	events *publisher.LedgerEventPublisher,
	stats *StatsUsecase,
	logger *zap.Logger,
) *WithdrawalUsecase {
	return &WithdrawalUsecase{
		db:          db,
		withdrawals: withdrawals,
		account:     account,
		ledger:      ledger,
		events:      events,
		stats:       stats,
		logger:      logger,
	}
}

// Submit files a pending request for the student's own account. The balance
// is not checked here: it can change before review, so the only check that
// counts happens at approval.
func (uc *WithdrawalUsecase) Submit(ctx context.Context, studentUserID int64, amount decimal.Decimal, reason string) (*domain.WithdrawalRequest, error) {
	amount = money.Normalize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", xerrors.ErrInvalidAmount)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", xerrors.ErrMissingRequired)
	}

	acct, err := uc.account.GetByUserID(ctx, studentUserID)
	if err != nil {
		return nil, err
	}

	req, err := uc.withdrawals.Create(ctx, &domain.WithdrawalRequest{
		AccountID: acct.ID,
		Amount:    amount,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("withdrawal requested",
		zap.Int64("request_id", req.ID),
		zap.Int64("account_id", acct.ID),
		zap.String("amount", money.Format(amount)),
	)
	if err := uc.events.PublishWithdrawalRequested(ctx, acct.ID, studentUserID, money.Format(amount)); err != nil {
		uc.logger.Warn("failed to publish withdrawal event", zap.Error(err))
	}
	uc.stats.InvalidateCache(ctx)

	return req, nil
}

// Approve resolves a pending request by deducting the balance. The request
// row and the account row are both locked, so a concurrent second approval
// waits, then sees the resolved status and gets ErrAlreadyResolved; money
// moves at most once. If the student no longer has the funds the request
// stays pending and the caller gets ErrInsufficientBalance.
func (uc *WithdrawalUsecase) Approve(ctx context.Context, reviewerID, requestID int64) (*domain.WithdrawalRequest, decimal.Decimal, error) {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := uc.withdrawals.GetByIDWithLock(ctx, tx, requestID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if req.Status != domain.WithdrawalPending {
		return nil, decimal.Zero, xerrors.ErrAlreadyResolved
	}

	acct, err := uc.account.GetByIDWithLock(ctx, tx, req.AccountID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	m, err := domain.Debit(acct, domain.KindWithdrawal, req.Amount, fmt.Sprintf("Withdrawal #%d", req.ID), reviewerID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	entry, err := uc.ledger.postLocked(ctx, tx, m)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := uc.withdrawals.MarkReviewed(ctx, tx, req.ID, domain.WithdrawalApproved, reviewerID); err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	now := time.Now()
	req.Status = domain.WithdrawalApproved
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now

	uc.logger.Info("withdrawal approved",
		zap.Int64("request_id", req.ID),
		zap.Int64("reviewer_id", reviewerID),
		zap.String("amount", money.Format(req.Amount)),
		zap.String("balance_after", money.Format(m.NewBalance)),
	)
	uc.ledger.afterPost(ctx, acct.UserID, m, entry)
	if err := uc.events.PublishWithdrawalResolved(ctx, acct.ID, string(domain.WithdrawalApproved), money.Format(req.Amount), reviewerID); err != nil {
		uc.logger.Warn("failed to publish withdrawal event", zap.Error(err))
	}

	return req, m.NewBalance, nil
}

// Deny resolves a pending request without touching the balance.
func (uc *WithdrawalUsecase) Deny(ctx context.Context, reviewerID, requestID int64) (*domain.WithdrawalRequest, error) {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := uc.withdrawals.GetByIDWithLock(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.WithdrawalPending {
		return nil, xerrors.ErrAlreadyResolved
	}

	if err := uc.withdrawals.MarkReviewed(ctx, tx, req.ID, domain.WithdrawalDenied, reviewerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	now := time.Now()
	req.Status = domain.WithdrawalDenied
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now

	uc.logger.Info("withdrawal denied",
		zap.Int64("request_id", req.ID),
		zap.Int64("reviewer_id", reviewerID),
	)
	if err := uc.events.PublishWithdrawalResolved(ctx, req.AccountID, string(domain.WithdrawalDenied), money.Format(req.Amount), reviewerID); err != nil {
		uc.logger.Warn("failed to publish withdrawal event", zap.Error(err))
	}
	uc.stats.InvalidateCache(ctx)

	return req, nil
}

// ListPending is the teacher's review queue.
func (uc *WithdrawalUsecase) ListPending(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	return uc.withdrawals.ListPending(ctx)
}

// ListOwn returns the student's full request history.
func (uc *WithdrawalUsecase) ListOwn(ctx context.Context, studentUserID int64) ([]*domain.WithdrawalRequest, error) {
	acct, err := uc.account.GetByUserID(ctx, studentUserID)
	if err != nil {
		return nil, err
	}
	return uc.withdrawals.ListByAccount(ctx, acct.ID)
}
