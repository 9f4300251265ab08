// Package paycycle works out when the next paycheck lands and which expenses
// it has to cover.
package paycycle

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"paycheck-tracker/internal/models"
	"paycheck-tracker/internal/validate"
)

// CycleDays is the length of a pay cycle.
const CycleDays = 14

// NextPay returns the pay date following recent.
func NextPay(recent models.Date) models.Date {
	return recent.AddDays(CycleDays)
}

// Window is an inclusive range of days.
type Window struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
}

// WindowAfter is the stretch of days the check following recent has to
// cover: from the day after recent through the day after the next pay date.
func WindowAfter(recent models.Date) Window {
	return Window{Start: recent.AddDays(1), End: recent.AddDays(CycleDays + 1)}
}

// Contains reports whether d falls inside w, bounds included.
func (w Window) Contains(d models.Date) bool {
	return !d.Before(w.Start.Time) && !d.After(w.End.Time)
}

// Roll moves inc forward one cycle at a time until today is no longer past
// the next pay date. Each step shifts recent_pay into last_pay. The second
// result reports whether anything moved.
func Roll(inc models.Income, today models.Date) (models.Income, bool) {
	rolled := false
	for today.After(NextPay(inc.RecentPay).Time) {
		prev := inc.RecentPay
		inc.LastPay = &prev
		inc.RecentPay = NextPay(prev)
		rolled = true
	}
	return inc, rolled
}

// DueItem is an expense together with the day it falls due.
type DueItem struct {
	Expense models.Expense `json:"expense"`
	Due     models.Date    `json:"due"`
}

// CheckPlan lists what the next check pays for.
type CheckPlan struct {
	Income  models.Income   `json:"income"`
	Rolled  bool            `json:"rolled"`
	NextPay models.Date     `json:"next_pay"`
	Window  Window          `json:"window"`
	Due     []DueItem       `json:"due"`
	Total   decimal.Decimal `json:"total"`
}

// Plan rolls inc forward to today and collects the expenses due inside the
// window of the next check, sorted by due day. Expenses without a due day
// are never due.
func Plan(inc models.Income, expenses []models.Expense, today models.Date) CheckPlan {
	inc, rolled := Roll(inc, today)
	w := WindowAfter(inc.RecentPay)

	plan := CheckPlan{
		Income:  inc,
		Rolled:  rolled,
		NextPay: NextPay(inc.RecentPay),
		Window:  w,
		Due:     []DueItem{},
		Total:   decimal.Zero,
	}
	for _, e := range expenses {
		if e.DueDate == nil {
			continue
		}
		due, ok := dueIn(w, *e.DueDate)
		if !ok {
			continue
		}
		plan.Due = append(plan.Due, DueItem{Expense: e, Due: due})
		plan.Total = plan.Total.Add(e.Amount)
	}
	slices.SortStableFunc(plan.Due, func(a, b DueItem) int {
		if c := a.Due.Compare(b.Due.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Expense.ID, b.Expense.ID)
	})
	return plan
}

// dueIn places day in the window's start month or the month after,
// clamping to the month's last day, and returns the first placement that
// lands inside w.
func dueIn(w Window, day int) (models.Date, bool) {
	first := models.NewDate(w.Start.Year(), w.Start.Month(), 1)
	for _, month := range []models.Date{first, {Time: first.AddDate(0, 1, 0)}} {
		d := models.NewDate(month.Year(), month.Month(), min(day, daysIn(month.Year(), month.Month())))
		if w.Contains(d) {
			return d, true
		}
	}
	return models.Date{}, false
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CheckLastPay fails with a range error unless last_pay is unset or
// strictly before recent_pay.
func CheckLastPay(in models.IncomeIn) error {
	if in.LastPay == nil || in.LastPay.Before(in.RecentPay.Time) {
		return nil
	}
	return validate.NewFieldError("last_pay",
		fmt.Errorf("%w: last_pay %s is not before recent_pay %s", validate.ErrRange, in.LastPay, in.RecentPay))
}
