package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

type quickActionFixture struct {
	*ledgerFixture
	actions *fakeQuickActionRepo
	uc      *QuickActionUsecase
}

func newQuickActionFixture(t *testing.T) *quickActionFixture {
	t.Helper()
	lfx := newLedgerFixture(t)
	actions := newFakeQuickActionRepo()
	uc := NewQuickActionUsecase(actions, lfx.ledger, zap.NewNop())
	return &quickActionFixture{ledgerFixture: lfx, actions: actions, uc: uc}
}

func TestCreateQuickAction(t *testing.T) {
	fx := newQuickActionFixture(t)

	qa, err := fx.uc.Create(context.Background(), teacherID, "  Helped a classmate  ", decimal.RequireFromString("2.00"), domain.QuickActionReward)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if qa.Name != "Helped a classmate" {
		t.Errorf("name = %q, want trimmed", qa.Name)
	}
	if qa.TeacherID != teacherID {
		t.Errorf("teacher = %d, want %d", qa.TeacherID, teacherID)
	}
}

func TestCreateQuickActionValidation(t *testing.T) {
	fx := newQuickActionFixture(t)

	tests := []struct {
		name    string
		qaName  string
		amount  string
		kind    domain.QuickActionKind
		wantErr error
	}{
		{name: "blank name", qaName: "   ", amount: "2.00", kind: domain.QuickActionReward, wantErr: xerrors.ErrMissingRequired},
		{name: "bad kind", qaName: "Extra credit", amount: "2.00", kind: domain.QuickActionKind("discount"), wantErr: xerrors.ErrInvalidInput},
		{name: "zero amount", qaName: "Extra credit", amount: "0", kind: domain.QuickActionReward, wantErr: xerrors.ErrInvalidAmount},
		{name: "negative amount", qaName: "Late fee", amount: "-1.00", kind: domain.QuickActionFine, wantErr: xerrors.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.uc.Create(context.Background(), teacherID, tt.qaName, decimal.RequireFromString(tt.amount), tt.kind)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyQuickActionReward(t *testing.T) {
	fx := newQuickActionFixture(t)
	acct := fx.accounts.add(7, "10.00")

	qa, err := fx.uc.Create(context.Background(), teacherID, "Helped a classmate", decimal.RequireFromString("2.00"), domain.QuickActionReward)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entry, newBalance, err := fx.uc.Apply(context.Background(), teacherID, qa.ID, 7)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := newBalance.StringFixed(2); got != "12.00" {
		t.Errorf("new balance = %s, want 12.00", got)
	}
	if entry.Kind != domain.KindReward {
		t.Errorf("entry kind = %s, want reward", entry.Kind)
	}
	if got := entry.Amount.StringFixed(2); got != "2.00" {
		t.Errorf("entry amount = %s, want 2.00", got)
	}
	if entry.Description != "Helped a classmate" {
		t.Errorf("description = %q, want the preset name", entry.Description)
	}
	if entry.ActorID != teacherID {
		t.Errorf("actor = %d, want %d", entry.ActorID, teacherID)
	}
	assertReconciled(t, fx.ledgerFixture, acct.ID)
}

func TestApplyQuickActionFine(t *testing.T) {
	fx := newQuickActionFixture(t)
	acct := fx.accounts.add(7, "10.00")

	qa, err := fx.uc.Create(context.Background(), teacherID, "Missing homework", decimal.RequireFromString("1.50"), domain.QuickActionFine)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entry, newBalance, err := fx.uc.Apply(context.Background(), teacherID, qa.ID, 7)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := newBalance.StringFixed(2); got != "8.50" {
		t.Errorf("new balance = %s, want 8.50", got)
	}
	if entry.Kind != domain.KindFine {
		t.Errorf("entry kind = %s, want fine", entry.Kind)
	}
	if got := entry.Amount.StringFixed(2); got != "-1.50" {
		t.Errorf("entry amount = %s, want -1.50", got)
	}
	assertReconciled(t, fx.ledgerFixture, acct.ID)
}

func TestApplyQuickActionFineInsufficient(t *testing.T) {
	fx := newQuickActionFixture(t)
	acct := fx.accounts.add(7, "1.00")

	qa, err := fx.uc.Create(context.Background(), teacherID, "Missing homework", decimal.RequireFromString("1.50"), domain.QuickActionFine)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, _, err = fx.uc.Apply(context.Background(), teacherID, qa.ID, 7)
	if !errors.Is(err, xerrors.ErrInsufficientBalance) {
		t.Fatalf("Apply error = %v, want ErrInsufficientBalance", err)
	}
	if got := fx.accounts.balance(acct.ID).StringFixed(2); got != "1.00" {
		t.Errorf("balance = %s, want untouched 1.00", got)
	}
	if entries := fx.entries.forAccount(acct.ID); len(entries) != 0 {
		t.Errorf("failed fine wrote %d entries, want none", len(entries))
	}
}

func TestApplyQuickActionNotOwner(t *testing.T) {
	fx := newQuickActionFixture(t)
	fx.accounts.add(7, "10.00")

	qa, err := fx.uc.Create(context.Background(), teacherID, "Helped a classmate", decimal.RequireFromString("2.00"), domain.QuickActionReward)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	otherTeacher := teacherID + 1
	if _, _, err := fx.uc.Apply(context.Background(), otherTeacher, qa.ID, 7); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("Apply by non-owner error = %v, want ErrNotFound", err)
	}
}

func TestDeleteQuickAction(t *testing.T) {
	fx := newQuickActionFixture(t)

	qa, err := fx.uc.Create(context.Background(), teacherID, "Helped a classmate", decimal.RequireFromString("2.00"), domain.QuickActionReward)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// another teacher cannot delete it
	if err := fx.uc.Delete(context.Background(), teacherID+1, qa.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("Delete by non-owner error = %v, want ErrNotFound", err)
	}

	if err := fx.uc.Delete(context.Background(), teacherID, qa.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	list, err := fx.uc.List(context.Background(), teacherID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List returned %d actions after delete, want 0", len(list))
	}
}

func TestListQuickActionsScopedToTeacher(t *testing.T) {
	fx := newQuickActionFixture(t)

	ctx := context.Background()
	if _, err := fx.uc.Create(ctx, teacherID, "Helped a classmate", decimal.RequireFromString("2.00"), domain.QuickActionReward); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := fx.uc.Create(ctx, teacherID+1, "Other class reward", decimal.RequireFromString("3.00"), domain.QuickActionReward); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := fx.uc.List(ctx, teacherID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List returned %d actions, want 1", len(list))
	}
	if list[0].Name != "Helped a classmate" {
		t.Errorf("List leaked another teacher's preset: %q", list[0].Name)
	}
}
