package hrest

import (
	"encoding/json"
	"net/http"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
)

type LoginJSON struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *ClassbankRestHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Username == "" || in.Password == "" {
		response.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, user, err := h.authUC.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  userView(user),
	})
}

func (h *ClassbankRestHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.authUC.Logout(r.Context(), p.SessionID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the caller's user record plus, for students, the account.
func (h *ClassbankRestHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, acct, err := h.accountUC.Overview(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := map[string]interface{}{"user": userView(user)}
	if acct != nil {
		out["account"] = accountView(acct)
	}
	response.JSON(w, http.StatusOK, out)
}
