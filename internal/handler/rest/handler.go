package hrest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/internal/middleware"
	"github.com/ReadWriteReboot/ClassroomBank/internal/usecase"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// ClassbankRestHandler is the single HTTP surface of the service. Role
// gating happens in the router middleware; the handlers only read the
// already-resolved principal.
type ClassbankRestHandler struct {
	authUC       *usecase.AuthUsecase
	accountUC    *usecase.AccountUsecase
	ledgerUC     *usecase.LedgerUsecase
	withdrawalUC *usecase.WithdrawalUsecase
	quickUC      *usecase.QuickActionUsecase
	statsUC      *usecase.StatsUsecase
	logger       *zap.Logger
}

func NewClassbankRestHandler(
	authUC *usecase.AuthUsecase,
	accountUC *usecase.AccountUsecase,
	ledgerUC *usecase.LedgerUsecase,
	withdrawalUC *usecase.WithdrawalUsecase,
	quickUC *usecase.QuickActionUsecase,
	statsUC *usecase.StatsUsecase,
	logger *zap.Logger,
) *ClassbankRestHandler {
	return &ClassbankRestHandler{
		authUC:       authUC,
		accountUC:    accountUC,
		ledgerUC:     ledgerUC,
		withdrawalUC: withdrawalUC,
		quickUC:      quickUC,
		statsUC:      statsUC,
		logger:       logger,
	}
}

// writeError maps usecase errors onto HTTP statuses. Client mistakes carry
// their message through; anything unexpected is logged and masked.
func (h *ClassbankRestHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidCredentials),
		errors.Is(err, xerrors.ErrUnauthenticated),
		errors.Is(err, xerrors.ErrSessionExpired),
		errors.Is(err, xerrors.ErrInvalidToken):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, xerrors.ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrInvalidAmount),
		errors.Is(err, xerrors.ErrMissingRequired),
		errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrInsufficientBalance):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, xerrors.ErrAlreadyResolved),
		errors.Is(err, xerrors.ErrUsernameTaken):
		response.Error(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "unexpected error occurred")
	}
}

func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "No token provided")
	}
	return p, ok
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", xerrors.ErrInvalidInput, name)
	}
	return id, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil {
			offset = o
		}
	}
	return limit, offset
}

// --- wire views ---
//
// Amounts cross the wire as fixed two-digit strings, never as JSON numbers,
// so the views re-render every decimal through money.Format.

type userJSON struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func userView(u *domain.User) userJSON {
	return userJSON{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
}

type accountJSON struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Balance string `json:"balance"`
}

func accountView(a *domain.Account) accountJSON {
	return accountJSON{ID: a.ID, UserID: a.UserID, Balance: money.Format(a.Balance)}
}

type transactionJSON struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func entryView(t *domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Reference:   t.Reference,
		Kind:        string(t.Kind),
		Amount:      money.Format(t.Amount),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func entriesView(ts []*domain.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, entryView(t))
	}
	return out
}

type ledgerJSON struct {
	Account     accountJSON       `json:"account"`
	Entries     []transactionJSON `json:"entries"`
	LedgerTotal string            `json:"ledger_total"`
}

func ledgerView(v *domain.LedgerView) ledgerJSON {
	return ledgerJSON{
		Account:     accountView(v.Account),
		Entries:     entriesView(v.Entries),
		LedgerTotal: money.Format(v.LedgerTotal),
	}
}

type withdrawalJSON struct {
	ID         int64      `json:"id"`
	Amount     string     `json:"amount"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func withdrawalView(req *domain.WithdrawalRequest) withdrawalJSON {
	return withdrawalJSON{
		ID:         req.ID,
		Amount:     money.Format(req.Amount),
		Reason:     req.Reason,
		Status:     string(req.Status),
		ReviewedAt: req.ReviewedAt,
		CreatedAt:  req.CreatedAt,
	}
}

func withdrawalsView(reqs []*domain.WithdrawalRequest) []withdrawalJSON {
	out := make([]withdrawalJSON, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, withdrawalView(r))
	}
	return out
}

type quickActionJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Kind   string `json:"kind"`
}

func quickActionView(qa *domain.QuickAction) quickActionJSON {
	return quickActionJSON{
		ID:     qa.ID,
		Name:   qa.Name,
		Amount: money.Format(qa.Amount),
		Kind:   string(qa.Kind),
	}
}

type statsJSON struct {
	Students           int    `json:"students"`
	TotalBalance       string `json:"total_balance"`
	PendingWithdrawals int    `json:"pending_withdrawals"`
	PaychecksLast7Days string `json:"paychecks_last_7_days"`
}

func statsView(s *domain.ClassStats) statsJSON {
	return statsJSON{
		Students:           s.Students,
		TotalBalance:       money.Format(s.TotalBalance),
		PendingWithdrawals: s.PendingWithdrawals,
		PaychecksLast7Days: money.Format(s.PaychecksLast7Days),
	}
}
