package hrest

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
)

type EnrollJSON struct {
	FullName       string `json:"full_name"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	OpeningDeposit string `json:"opening_deposit"`
}

// HandleEnrollStudent creates the user, the account and an optional opening
// deposit in one step. POST /api/v1/students
func (h *ClassbankRestHandler) HandleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in EnrollJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// absent deposit means start at zero
	deposit := decimal.Zero
	if in.OpeningDeposit != "" {
		var err error
		if deposit, err = money.Parse(in.OpeningDeposit); err != nil {
			h.writeError(w, err)
			return
		}
	}

	user, acct, err := h.accountUC.EnrollStudent(r.Context(), p.UserID, in.FullName, in.Username, in.Password, deposit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusCreated, map[string]interface{}{
		"user":    userView(user),
		"account": accountView(acct),
	}, []string{"students", "stats"})
}

// HandleListStudents is the teacher's roster with current balances.
// GET /api/v1/students
func (h *ClassbankRestHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.accountUC.ListStudents(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, students)
}

// HandleStats is the teacher dashboard snapshot.
// GET /api/v1/stats
func (h *ClassbankRestHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsUC.ClassStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, statsView(stats))
}
