package api

import (
	"net/http"

	"pharmastock/m/domain"
	"pharmastock/m/internal/account"
	"pharmastock/m/internal/session"
)

type sessionResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
	Account domain.Account  `json:"account"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, token, err := h.Sessions.Begin(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Token: token, Session: sess, Account: a})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	a, err := h.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, token, err := h.Sessions.Begin(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Token: token, Session: sess, Account: a})
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := h.Sessions.End(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	a, err := h.Accounts.Get(r.Context(), sess.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
