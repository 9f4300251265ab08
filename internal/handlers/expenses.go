package handlers

import (
	"net/http"

	"paycheck-tracker/internal/events"
	"paycheck-tracker/internal/models"
)

// ListExpenses returns the user's expenses by due day.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expenses, err := h.db.ListExpenses(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// CreateExpense stores a new expense. income_id must name the user's income.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	p, err := decodePatch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := models.NewExpenseIn(p, h.hook(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.db.CreateExpense(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.ExpenseCreated, user.ID, e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.db.GetExpense(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateExpense applies a partial update. PUT and PATCH behave the same.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := decodePatch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	hook := h.hook(r)
	e, err := h.db.UpdateExpense(r.Context(), user.ID, id, func(cur models.Expense) (models.Expense, error) {
		return models.ApplyExpenseUpdate(cur, p, hook)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.ExpenseUpdated, user.ID, e.ID)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.db.DeleteExpense(r.Context(), user.ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.ExpenseDeleted, user.ID, id)
	w.WriteHeader(http.StatusNoContent)
}
