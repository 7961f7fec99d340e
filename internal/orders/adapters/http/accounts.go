package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dejobratic/libris/internal/accounts"
)

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	var role *accounts.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		value := accounts.Role(raw)
		role = &value
	}
	profiles, err := h.accounts.List(r.Context(), role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": profiles})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request, actor *accounts.Profile) {
	var payload accounts.CreateInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	profile, err := h.accounts.Create(r.Context(), payload, actor.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account": profile})
}

func (h *Handler) blockAccount(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	h.setBlocked(w, r, h.accounts.Block)
}

func (h *Handler) unblockAccount(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	h.setBlocked(w, r, h.accounts.Unblock)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, accounts.ErrUserNotFound.Error())
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	profile, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": profile})
}

type sessionPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createSession checks credentials and returns the session view of the account.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var payload sessionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
