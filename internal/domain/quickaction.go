package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuickActionKind string

const (
	QuickActionReward QuickActionKind = "reward"
	QuickActionFine   QuickActionKind = "fine"
)

func (k QuickActionKind) Valid() bool {
	return k == QuickActionReward || k == QuickActionFine
}

// QuickAction is a teacher-owned preset applying a fixed amount with one
// call: reward credits, fine debits. Only the owning teacher may list,
// apply or delete it.
type QuickAction struct {
	ID        int64           `json:"id"`
	TeacherID int64           `json:"teacher_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      QuickActionKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}
