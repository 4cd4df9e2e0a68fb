package hrest

import (
	"encoding/json"
	"net/http"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/money"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
)

type QuickActionJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Kind   string `json:"kind"` // reward | fine
}

// HandleCreateQuickAction saves a new preset for the calling teacher.
// POST /api/v1/quick-actions
func (h *ClassbankRestHandler) HandleCreateQuickAction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in QuickActionJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	qa, err := h.quickUC.Create(r.Context(), p.UserID, in.Name, amount, domain.QuickActionKind(in.Kind))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, quickActionView(qa))
}

// HandleListQuickActions lists the calling teacher's presets.
// GET /api/v1/quick-actions
func (h *ClassbankRestHandler) HandleListQuickActions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	actions, err := h.quickUC.List(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]quickActionJSON, 0, len(actions))
	for _, qa := range actions {
		out = append(out, quickActionView(qa))
	}
	response.JSON(w, http.StatusOK, out)
}

// HandleDeleteQuickAction removes one of the caller's presets.
// DELETE /api/v1/quick-actions/{id}
func (h *ClassbankRestHandler) HandleDeleteQuickAction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	actionID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.quickUC.Delete(r.Context(), p.UserID, actionID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type ApplyQuickActionJSON struct {
	StudentUserID int64 `json:"student_user_id"`
}

// HandleApplyQuickAction runs a preset against one student.
// POST /api/v1/quick-actions/{id}/apply
func (h *ClassbankRestHandler) HandleApplyQuickAction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	actionID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var in ApplyQuickActionJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.StudentUserID <= 0 {
		response.Error(w, http.StatusBadRequest, "student_user_id is required")
		return
	}

	entry, newBalance, err := h.quickUC.Apply(r.Context(), p.UserID, actionID, in.StudentUserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONInvalidate(w, http.StatusOK, map[string]interface{}{
		"entry":   entryView(entry),
		"balance": money.Format(newBalance),
	}, []string{"students", "stats"})
}
