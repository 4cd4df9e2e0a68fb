package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	publisher "github.com/ReadWriteReboot/ClassroomBank/internal/pub"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/id"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// fakeTx satisfies pgx.Tx for flows that never touch a real database; the
// fake repositories apply writes immediately.
type fakeTx struct{}

func (fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (fakeTx) Commit(ctx context.Context) error          { return nil }
func (fakeTx) Rollback(ctx context.Context) error        { return nil }
func (fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

// deadRedis returns a client with nothing listening behind it. Cache and
// event publishing are best effort, so the usecases must shrug these
// failures off; pointing at a dead address exercises exactly that.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

// --- account repository ---

type fakeAccountRepo struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*domain.Account
	byUser   map[int64]int64
	lockErrs map[int64]error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byID:     make(map[int64]*domain.Account),
		byUser:   make(map[int64]int64),
		lockErrs: make(map[int64]error),
	}
}

func (f *fakeAccountRepo) add(userID int64, balance string) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a := &domain.Account{
		ID:      f.nextID,
		UserID:  userID,
		Balance: decimal.RequireFromString(balance),
	}
	f.byID[a.ID] = a
	f.byUser[userID] = a.ID
	return a
}

func (f *fakeAccountRepo) failLockOn(accountID int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockErrs[accountID] = err
}

func (f *fakeAccountRepo) balance(accountID int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[accountID].Balance
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Account, error) {
	a := f.add(userID, "0")
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Account, error) {
	f.mu.Lock()
	id, ok := f.byUser[userID]
	f.mu.Unlock()
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return f.GetByID(ctx, id)
}

func (f *fakeAccountRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	f.mu.Lock()
	err := f.lockErrs[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.GetByID(ctx, id)
}

func (f *fakeAccountRepo) GetByUserIDWithLock(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Account, error) {
	f.mu.Lock()
	id, ok := f.byUser[userID]
	f.mu.Unlock()
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return f.GetByIDWithLock(ctx, tx, id)
}

func (f *fakeAccountRepo) ListIDs(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID int64, newBalance decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[accountID]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.Balance = newBalance
	return nil
}

// --- transaction repository ---

type fakeEntryRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []*domain.Transaction
}

func newFakeEntryRepo() *fakeEntryRepo { return &fakeEntryRepo{} }

func (f *fakeEntryRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *entry
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.entries = append(f.entries, &cp)
	out := cp
	return &out, nil
}

func (f *fakeEntryRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.Transaction
	skipped := 0
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].AccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *f.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeEntryRepo) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	for _, e := range f.entries {
		if e.AccountID == accountID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (f *fakeEntryRepo) forAccount(accountID int64) []*domain.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Transaction
	for _, e := range f.entries {
		if e.AccountID == accountID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// --- withdrawal repository ---

type fakeWithdrawalRepo struct {
	mu     sync.Mutex
	nextID int64
	reqs   map[int64]*domain.WithdrawalRequest
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{reqs: make(map[int64]*domain.WithdrawalRequest)}
}

func (f *fakeWithdrawalRepo) Create(ctx context.Context, req *domain.WithdrawalRequest) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *req
	cp.ID = f.nextID
	cp.Status = domain.WithdrawalPending
	cp.CreatedAt = time.Now()
	f.reqs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeWithdrawalRepo) GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeWithdrawalRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.WithdrawalRequest, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeWithdrawalRepo) ListByAccount(ctx context.Context, accountID int64) ([]*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.WithdrawalRequest
	for _, r := range f.reqs {
		if r.AccountID == accountID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeWithdrawalRepo) ListPending(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PendingWithdrawal
	for _, r := range f.reqs {
		if r.Status != domain.WithdrawalPending {
			continue
		}
		out = append(out, &domain.PendingWithdrawal{
			ID:        r.ID,
			AccountID: r.AccountID,
			Amount:    money.Format(r.Amount),
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWithdrawalRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id int64, status domain.WithdrawalStatus, reviewerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	if r.Status != domain.WithdrawalPending {
		return xerrors.ErrAlreadyResolved
	}
	now := time.Now()
	r.Status = status
	r.ReviewerID = &reviewerID
	r.ReviewedAt = &now
	return nil
}

// --- quick action repository ---

type fakeQuickActionRepo struct {
	mu      sync.Mutex
	nextID  int64
	actions map[int64]*domain.QuickAction
}

func newFakeQuickActionRepo() *fakeQuickActionRepo {
	return &fakeQuickActionRepo{actions: make(map[int64]*domain.QuickAction)}
}

func (f *fakeQuickActionRepo) Create(ctx context.Context, qa *domain.QuickAction) (*domain.QuickAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *qa
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.actions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeQuickActionRepo) GetByID(ctx context.Context, id int64) (*domain.QuickAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qa, ok := f.actions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *qa
	return &cp, nil
}

func (f *fakeQuickActionRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]*domain.QuickAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.QuickAction
	for _, qa := range f.actions {
		if qa.TeacherID == teacherID {
			cp := *qa
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuickActionRepo) Delete(ctx context.Context, id, teacherID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	qa, ok := f.actions[id]
	if !ok || qa.TeacherID != teacherID {
		return xerrors.ErrNotFound
	}
	delete(f.actions, id)
	return nil
}

func hashForTest(password string) string {
	h, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(h)
}

// --- user repository ---

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	byName map[string]int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[int64]*domain.User),
		byName: make(map[string]int64),
	}
}

func (f *fakeUserRepo) add(username, password string, role domain.Role) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &domain.User{
		ID:           f.nextID,
		Username:     username,
		FullName:     username,
		PasswordHash: hashForTest(password),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	f.byName[username] = u.ID
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byName[user.Username]; exists {
		return nil, xerrors.ErrUsernameTaken
	}
	f.nextID++
	cp := *user
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.users[cp.ID] = &cp
	f.byName[cp.Username] = cp.ID
	out := cp
	return &out, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	id, ok := f.byName[username]
	f.mu.Unlock()
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return f.GetByID(ctx, id)
}

func (f *fakeUserRepo) ListStudents(ctx context.Context) ([]*domain.StudentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.StudentSummary
	for _, u := range f.users {
		if u.Role != domain.RoleStudent {
			continue
		}
		out = append(out, &domain.StudentSummary{
			UserID:   u.ID,
			FullName: u.FullName,
			Username: u.Username,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// --- session repository ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*repository.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*repository.Session)}
}

func (f *fakeSessionRepo) Save(ctx context.Context, sessionID string, sess *repository.Session, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sess
	f.sessions[sessionID] = &cp
	return nil
}

func (f *fakeSessionRepo) Get(ctx context.Context, sessionID string) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, xerrors.ErrSessionExpired
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

// --- stats repository ---

type fakeStatsRepo struct {
	mu        sync.Mutex
	snapshots int
	stats     domain.ClassStats
}

func (f *fakeStatsRepo) Snapshot(ctx context.Context) (*domain.ClassStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	cp := f.stats
	return &cp, nil
}

func (f *fakeStatsRepo) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots
}

// --- harness ---

type ledgerFixture struct {
	accounts *fakeAccountRepo
	entries  *fakeEntryRepo
	ledger   *LedgerUsecase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	refs, err := id.NewSnowflake(1)
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}
	accounts := newFakeAccountRepo()
	entries := newFakeEntryRepo()
	events := publisher.NewLedgerEventPublisher(deadRedis(), nil)
	stats := NewStatsUsecase(&fakeStatsRepo{}, deadRedis(), zap.NewNop())
	ledger := NewLedgerUsecase(fakeDB{}, accounts, entries, refs, events, stats, zap.NewNop())
	return &ledgerFixture{accounts: accounts, entries: entries, ledger: ledger}
}

// assertReconciled checks the store-level invariant: the entry sum explains
// the balance exactly.
func assertReconciled(t *testing.T, fx *ledgerFixture, accountID int64) {
	t.Helper()
	if err := fx.ledger.Reconcile(context.Background(), accountID); err != nil {
		t.Error(err)
	}
}
