package hrest

import (
	"encoding/json"
	"net/http"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
)

type BatchJSON struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// HandlePaycheck credits every student account with the same amount.
// POST /api/v1/ledger/paycheck
func (h *ClassbankRestHandler) HandlePaycheck(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in BatchJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.ledgerUC.DistributePaycheck(r.Context(), p.UserID, amount, in.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusOK, result, []string{"students", "stats"})
}

// HandleRent deducts up to the amount from every student account, clamping
// at zero. POST /api/v1/ledger/rent
func (h *ClassbankRestHandler) HandleRent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in BatchJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.ledgerUC.CollectRent(r.Context(), p.UserID, amount, in.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusOK, result, []string{"students", "stats"})
}

type AdjustJSON struct {
	Direction string `json:"direction"` // add | subtract
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}

// HandleAdjust applies a manual correction to one student's balance.
// POST /api/v1/students/{userID}/adjust
func (h *ClassbankRestHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	studentUserID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var in AdjustJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entry, newBalance, err := h.ledgerUC.AdjustBalance(r.Context(), p.UserID, studentUserID, in.Direction, amount, in.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusOK, map[string]interface{}{
		"entry":   entryView(entry),
		"balance": money.Format(newBalance),
	}, []string{"students", "stats"})
}

// HandleStudentLedger lets the teacher read any student's ledger.
// GET /api/v1/students/{userID}/ledger?limit=50&offset=0
func (h *ClassbankRestHandler) HandleStudentLedger(w http.ResponseWriter, r *http.Request) {
	studentUserID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, offset := pagination(r)
	view, err := h.ledgerUC.StudentLedger(r.Context(), studentUserID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ledgerView(view))
}

// HandleMyLedger is the student's own balance and history.
// GET /api/v1/me/ledger?limit=50&offset=0
func (h *ClassbankRestHandler) HandleMyLedger(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	view, err := h.ledgerUC.StudentLedger(r.Context(), p.UserID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ledgerView(view))
}
