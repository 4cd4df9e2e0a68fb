package hrest

import (
	"encoding/json"
	"net/http"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
)

type WithdrawalSubmitJSON struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// HandleSubmitWithdrawal files a student's withdrawal request. The balance
// is not checked here; that happens when the teacher approves.
// POST /api/v1/me/withdrawals
func (h *ClassbankRestHandler) HandleSubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in WithdrawalSubmitJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	req, err := h.withdrawalUC.Submit(r.Context(), p.UserID, amount, in.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusCreated, withdrawalView(req), []string{"withdrawals", "stats"})
}

// HandleMyWithdrawals lists the caller's own requests, newest first.
// GET /api/v1/me/withdrawals
func (h *ClassbankRestHandler) HandleMyWithdrawals(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	reqs, err := h.withdrawalUC.ListOwn(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, withdrawalsView(reqs))
}

// HandleListPending is the teacher's review queue, oldest first.
// GET /api/v1/withdrawals/pending
func (h *ClassbankRestHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.withdrawalUC.ListPending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, pending)
}

// HandleApproveWithdrawal deducts the amount and resolves the request in one
// database transaction. POST /api/v1/withdrawals/{id}/approve
func (h *ClassbankRestHandler) HandleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	requestID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	req, newBalance, err := h.withdrawalUC.Approve(r.Context(), p.UserID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusOK, map[string]interface{}{
		"request": withdrawalView(req),
		"balance": money.Format(newBalance),
	}, []string{"withdrawals", "students", "stats"})
}

// HandleDenyWithdrawal resolves the request without touching the balance.
// POST /api/v1/withdrawals/{id}/deny
func (h *ClassbankRestHandler) HandleDenyWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	requestID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	req, err := h.withdrawalUC.Deny(r.Context(), p.UserID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusOK, map[string]interface{}{
		"request": withdrawalView(req),
	}, []string{"withdrawals", "stats"})
}
