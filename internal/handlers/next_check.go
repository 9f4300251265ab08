package handlers

import (
	"net/http"

	"paycheck-tracker/internal/events"
	"paycheck-tracker/internal/log"
	"paycheck-tracker/internal/models"
	"paycheck-tracker/internal/paycycle"
)

// NextCheck reports when the next paycheck lands and which expenses it
// covers. A stale income record is rolled forward and saved.
func (h *Handlers) NextCheck(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	ctx := r.Context()

	inc, err := h.db.GetIncomeForUser(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	expenses, err := h.db.ListExpenses(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	plan := paycycle.Plan(inc, expenses, models.DateOf(h.now()))
	if plan.Rolled {
		saved, err := h.db.UpdateIncome(ctx, user.ID, inc.ID, func(cur models.Income) (models.Income, error) {
			cur.RecentPay = plan.Income.RecentPay
			cur.LastPay = plan.Income.LastPay
			return cur, nil
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		plan.Income = saved
		log.FromContext(ctx).InfoContext(ctx, "pay cycle rolled forward",
			log.FieldOperation, log.OpPlan,
			log.FieldUserID, user.ID,
			log.FieldEntityID, inc.ID,
		)
		h.publish(r, events.IncomeUpdated, user.ID, inc.ID)
	}
	writeJSON(w, http.StatusOK, plan)
}
