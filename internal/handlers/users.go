package handlers

import (
	"net/http"

	"paycheck-tracker/internal/events"
	"paycheck-tracker/internal/models"
)

// CreateUser registers a new account.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, err := decodePatch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := models.NewUserIn(p, h.hook(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := models.NewUser(in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.db.CreateUser(r.Context(), u)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.UserCreated, created.ID, created.ID)
	writeJSON(w, http.StatusCreated, created.Out())
}

// GetMe returns the authenticated user.
func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetUserFromContext(r).Out())
}

// UpdateMe applies a partial update to the authenticated user.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	p, err := decodePatch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	hook := h.hook(r)
	updated, err := h.db.UpdateUser(r.Context(), user.ID, func(cur models.User) (models.User, error) {
		return models.ApplyUserUpdate(cur, p, hook)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.UserUpdated, updated.ID, updated.ID)
	writeJSON(w, http.StatusOK, updated.Out())
}

// DeleteMe removes the authenticated user with their income and expenses.
func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := h.db.DeleteUser(r.Context(), user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.UserDeleted, user.ID, user.ID)
	w.WriteHeader(http.StatusNoContent)
}
