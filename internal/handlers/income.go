package handlers

import (
	"net/http"

	"paycheck-tracker/internal/events"
	"paycheck-tracker/internal/models"
	"paycheck-tracker/internal/paycycle"
)

// GetIncome returns the authenticated user's income record.
func (h *Handlers) GetIncome(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	inc, err := h.db.GetIncomeForUser(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// CreateIncome stores the user's income. A second one is a conflict.
func (h *Handlers) CreateIncome(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	p, err := decodePatch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := models.NewIncomeIn(p, h.hook(r))
	if err == nil && h.strictPayCycle {
		err = paycycle.CheckLastPay(in)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	inc, err := h.db.CreateIncome(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.IncomeCreated, user.ID, inc.ID)
	writeJSON(w, http.StatusCreated, inc)
}

func (h *Handlers) GetIncomeByID(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	inc, err := h.db.GetIncome(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// UpdateIncome applies a partial update. PUT and PATCH behave the same.
func (h *Handlers) UpdateIncome(w http.ResponseWriter, r *http.Request) {
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
	inc, err := h.db.UpdateIncome(r.Context(), user.ID, id, func(cur models.Income) (models.Income, error) {
		next, err := models.ApplyIncomeUpdate(cur, p, hook)
		if err == nil && h.strictPayCycle {
			err = paycycle.CheckLastPay(next.IncomeIn)
		}
		return next, err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.IncomeUpdated, user.ID, inc.ID)
	writeJSON(w, http.StatusOK, inc)
}

func (h *Handlers) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.db.DeleteIncome(r.Context(), user.ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.publish(r, events.IncomeDeleted, user.ID, id)
	w.WriteHeader(http.StatusNoContent)
}
