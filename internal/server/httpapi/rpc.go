package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/corund/internal/server/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshTokenBody carries a refresh token in both directions.
type refreshTokenBody struct {
	RT string `json:"rt"`
}

type accessTokenResponse struct {
	AT string `json:"at"`
}

type changesRequest struct {
	Unlink *bool `json:"unlink"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rt, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshTokenBody{RT: rt})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenBody
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.sessions.EndSession(r.Context(), req.RT); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenBody
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.sessions.Current(r.Context(), req.RT)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenBody
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.sessions.IssueAccessToken(r.Context(), req.RT)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessTokenResponse{AT: at})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := decode(w, r, &reg); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), reg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) deregister(w http.ResponseWriter, r *http.Request) {
	var sel models.Selector
	if err := decode(w, r, &sel); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.Remove(r.Context(), sel); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// userChanges returns the calling domain's pending changes. They are
// acknowledged unless the body sets "unlink" to false.
func (h *Handler) userChanges(w http.ResponseWriter, r *http.Request) {
	req := changesRequest{}
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ack := req.Unlink == nil || *req.Unlink

	changes, err := h.changes.FetchPending(r.Context(), domainFrom(r.Context()).Key, ack)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if changes == nil {
		changes = []*models.Change{}
	}
	writeJSON(w, http.StatusOK, changes)
}

func (h *Handler) getUsers(w http.ResponseWriter, r *http.Request) {
	var q models.UserQuery
	if err := decode(w, r, &q); err != nil {
		h.writeError(w, r, err)
		return
	}
	users, err := h.users.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
