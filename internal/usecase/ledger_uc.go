package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	publisher "github.com/ReadWriteReboot/ClassroomBank/internal/pub"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/id"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// Metrics
var (
	ledgerEntriesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_posted_total",
			Help: "Total number of ledger entries posted",
		},
		[]string{"kind", "status"},
	)

	ledgerBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_batch_duration_seconds",
			Help:    "Duration of batch ledger operations",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)
)

// DB is the slice of the pgx pool the usecases need. Narrowed to an
// interface so tests can substitute a stub transaction source.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LedgerUsecase owns every balance mutation. Each mutation locks the account
// row, applies one of the domain rules and persists the new balance together
// with its ledger entry in a single database transaction.
type LedgerUsecase struct {
	db      DB
	account repository.AccountRepository
	entry   repository.TransactionRepository

	refs   *id.Snowflake
	events *publisher.LedgerEventPublisher
	stats  *StatsUsecase
	logger *zap.Logger
}

func NewLedgerUsecase(
	db DB,
	account repository.AccountRepository,
	entry repository.TransactionRepository,
	refs *id.Snowflake,
	events *publisher.LedgerEventPublisher,
	stats *StatsUsecase,
	logger *zap.Logger,
) *LedgerUsecase {
	return &LedgerUsecase{
		db:      db,
		account: account,
		entry:   entry,
		refs:    refs,
		events:  events,
		stats:   stats,
		logger:  logger,
	}
}

// DistributePaycheck credits every student account with the same amount.
// Each account is its own transaction: one failure is logged and counted,
// the rest of the class still gets paid. Re-running pays again; there is no
// idempotency across calls.
func (uc *LedgerUsecase) DistributePaycheck(ctx context.Context, actorID int64, amount decimal.Decimal, description string) (*domain.PaycheckResult, error) {
	start := time.Now()
	defer func() {
		ledgerBatchDuration.WithLabelValues("paycheck").Observe(time.Since(start).Seconds())
	}()

	amount = money.Normalize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: paycheck amount must be positive", xerrors.ErrInvalidAmount)
	}
	if description == "" {
		description = "Paycheck"
	}

	accountIDs, err := uc.account.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.PaycheckResult{Amount: money.Format(amount)}
	for _, accountID := range accountIDs {
		if err := uc.creditOne(ctx, accountID, domain.KindPaycheck, amount, description, actorID); err != nil {
			result.Failed++
			ledgerEntriesPosted.WithLabelValues(string(domain.KindPaycheck), "failed").Inc()
			uc.logger.Error("paycheck credit failed",
				zap.Int64("account_id", accountID),
				zap.Error(err),
			)
			continue
		}
		result.StudentsAffected++
	}

	uc.logger.Info("paycheck distributed",
		zap.String("amount", result.Amount),
		zap.Int("credited", result.StudentsAffected),
		zap.Int("failed", result.Failed),
	)
	if err := uc.events.PublishBatchCompleted(ctx, "paycheck.distributed", result.Amount, result.StudentsAffected, 0, actorID); err != nil {
		uc.logger.Warn("failed to publish paycheck event", zap.Error(err))
	}
	uc.stats.InvalidateCache(ctx)

	return result, nil
}

// CollectRent deducts up to amount from every student account, clamping at
// zero. Accounts already at zero are skipped entirely: no entry, not counted
// as affected.
func (uc *LedgerUsecase) CollectRent(ctx context.Context, actorID int64, amount decimal.Decimal, description string) (*domain.RentResult, error) {
	start := time.Now()
	defer func() {
		ledgerBatchDuration.WithLabelValues("rent").Observe(time.Since(start).Seconds())
	}()

	amount = money.Normalize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: rent amount must be positive", xerrors.ErrInvalidAmount)
	}
	if description == "" {
		description = "Rent"
	}

	accountIDs, err := uc.account.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.RentResult{Amount: money.Format(amount)}
	for _, accountID := range accountIDs {
		skipped, err := uc.chargeRentOne(ctx, accountID, amount, description, actorID)
		if err != nil {
			result.Failed++
			ledgerEntriesPosted.WithLabelValues(string(domain.KindRent), "failed").Inc()
			uc.logger.Error("rent charge failed",
				zap.Int64("account_id", accountID),
				zap.Error(err),
			)
			continue
		}
		if skipped {
			result.Skipped++
			continue
		}
		result.StudentsAffected++
	}

	uc.logger.Info("rent collected",
		zap.String("amount", result.Amount),
		zap.Int("charged", result.StudentsAffected),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	if err := uc.events.PublishBatchCompleted(ctx, "rent.collected", result.Amount, result.StudentsAffected, result.Skipped, actorID); err != nil {
		uc.logger.Warn("failed to publish rent event", zap.Error(err))
	}
	uc.stats.InvalidateCache(ctx)

	return result, nil
}

// AdjustBalance applies a manual teacher correction to one student.
// direction "add" credits a bonus; "subtract" debits a withdrawal and fails
// with ErrInsufficientBalance when it would overdraw.
func (uc *LedgerUsecase) AdjustBalance(ctx context.Context, actorID, studentUserID int64, direction string, amount decimal.Decimal, reason string) (*domain.Transaction, decimal.Decimal, error) {
	switch direction {
	case "add":
		if reason == "" {
			reason = "Manual adjustment"
		}
		return uc.postCredit(ctx, studentUserID, domain.KindBonus, amount, reason, actorID)
	case "subtract":
		if reason == "" {
			reason = "Manual adjustment"
		}
		return uc.postDebit(ctx, studentUserID, domain.KindWithdrawal, amount, reason, actorID)
	default:
		return nil, decimal.Zero, fmt.Errorf("%w: direction must be add or subtract", xerrors.ErrInvalidInput)
	}
}

// StudentLedger returns the account, its recent entries and the all-time
// entry sum. The sum equaling the balance is the ledger's core guarantee;
// returning both makes the check visible to the caller.
func (uc *LedgerUsecase) StudentLedger(ctx context.Context, userID int64, limit, offset int) (*domain.LedgerView, error) {
	acct, err := uc.account.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := uc.entry.ListByAccount(ctx, acct.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := uc.entry.SumByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	if !total.Equal(acct.Balance) {
		uc.logger.Error("ledger out of balance",
			zap.Int64("account_id", acct.ID),
			zap.String("balance", money.Format(acct.Balance)),
			zap.String("ledger_total", money.Format(total)),
		)
	}

	return &domain.LedgerView{Account: acct, Entries: entries, LedgerTotal: total}, nil
}

// Reconcile recomputes the entry sum for one account and fails when it does
// not match the stored balance.
func (uc *LedgerUsecase) Reconcile(ctx context.Context, accountID int64) error {
	acct, err := uc.account.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	total, err := uc.entry.SumByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !total.Equal(acct.Balance) {
		return fmt.Errorf("account %d out of balance: balance %s, ledger total %s",
			accountID, money.Format(acct.Balance), money.Format(total))
	}
	return nil
}

// postCredit runs one credit against the account owned by userID in its own
// transaction. Shared by manual adjustments and quick-action rewards.
func (uc *LedgerUsecase) postCredit(ctx context.Context, userID int64, kind domain.TransactionKind, amount decimal.Decimal, description string, actorID int64) (*domain.Transaction, decimal.Decimal, error) {
	return uc.postToUser(ctx, userID, func(acct *domain.Account) (*domain.Mutation, error) {
		return domain.Credit(acct, kind, amount, description, actorID)
	})
}

// postDebit is the debit counterpart; the non-negative rule is enforced by
// domain.Debit before anything is written.
func (uc *LedgerUsecase) postDebit(ctx context.Context, userID int64, kind domain.TransactionKind, amount decimal.Decimal, description string, actorID int64) (*domain.Transaction, decimal.Decimal, error) {
	return uc.postToUser(ctx, userID, func(acct *domain.Account) (*domain.Mutation, error) {
		return domain.Debit(acct, kind, amount, description, actorID)
	})
}

func (uc *LedgerUsecase) postToUser(ctx context.Context, userID int64, mutate func(*domain.Account) (*domain.Mutation, error)) (*domain.Transaction, decimal.Decimal, error) {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	acct, err := uc.account.GetByUserIDWithLock(ctx, tx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	m, err := mutate(acct)
	if err != nil {
		return nil, decimal.Zero, err
	}

	entry, err := uc.postLocked(ctx, tx, m)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	uc.afterPost(ctx, acct.UserID, m, entry)
	return entry, m.NewBalance, nil
}

// creditOne is the batch variant keyed by account id (paycheck).
func (uc *LedgerUsecase) creditOne(ctx context.Context, accountID int64, kind domain.TransactionKind, amount decimal.Decimal, description string, actorID int64) error {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	acct, err := uc.account.GetByIDWithLock(ctx, tx, accountID)
	if err != nil {
		return err
	}

	m, err := domain.Credit(acct, kind, amount, description, actorID)
	if err != nil {
		return err
	}

	entry, err := uc.postLocked(ctx, tx, m)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	uc.afterPost(ctx, acct.UserID, m, entry)
	return nil
}

// chargeRentOne charges one account; a zero balance rolls the transaction
// back untouched and reports skipped.
func (uc *LedgerUsecase) chargeRentOne(ctx context.Context, accountID int64, amount decimal.Decimal, description string, actorID int64) (skipped bool, err error) {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	acct, err := uc.account.GetByIDWithLock(ctx, tx, accountID)
	if err != nil {
		return false, err
	}

	m, err := domain.ChargeRent(acct, amount, description, actorID)
	if err != nil {
		return false, err
	}
	if m.Skipped() {
		return true, nil
	}

	entry, err := uc.postLocked(ctx, tx, m)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	uc.afterPost(ctx, acct.UserID, m, entry)
	return false, nil
}

// postLocked persists a computed mutation inside the caller's transaction:
// the ledger entry first, then the balance it explains. Callers must already
// hold the account row lock.
func (uc *LedgerUsecase) postLocked(ctx context.Context, tx pgx.Tx, m *domain.Mutation) (*domain.Transaction, error) {
	if m.Skipped() {
		return nil, errors.New("cannot post a skipped mutation")
	}

	m.Entry.Reference = uc.refs.TransactionRef()

	entry, err := uc.entry.Insert(ctx, tx, m.Entry)
	if err != nil {
		return nil, err
	}

	if err := uc.account.UpdateBalance(ctx, tx, m.AccountID, m.NewBalance); err != nil {
		return nil, err
	}

	return entry, nil
}

// afterPost handles everything that happens once the mutation is committed:
// metrics, the ledger event and the stats cache. All of it is best effort.
func (uc *LedgerUsecase) afterPost(ctx context.Context, userID int64, m *domain.Mutation, entry *domain.Transaction) {
	ledgerEntriesPosted.WithLabelValues(string(entry.Kind), "success").Inc()

	err := uc.events.PublishEntryPosted(ctx,
		entry.AccountID,
		userID,
		string(entry.Kind),
		money.Format(entry.Amount),
		money.Format(m.NewBalance),
		entry.Reference,
		entry.ActorID,
	)
	if err != nil {
		uc.logger.Warn("failed to publish ledger event",
			zap.String("reference", entry.Reference),
			zap.Error(err),
		)
	}

	uc.stats.InvalidateCache(ctx)
}
