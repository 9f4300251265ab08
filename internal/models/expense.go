package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"paycheck-tracker/internal/validate"
)

// ExpenseIn is a validated recurring-expense payload.
type ExpenseIn struct {
	Name   string          `json:"name" db:"name" validate:"required,max=100"`
	Amount decimal.Decimal `json:"amount" db:"amount"`
	// DueDate is a day of the month, 1 to 30.
	DueDate  *int   `json:"due_date" db:"due_date"`
	IncomeID *int64 `json:"income_id" db:"income_id"`
}

// Expense is a stored expense. IncomeID may point at the income that pays
// for it; storage checks that the reference exists.
type Expense struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`
	ExpenseIn
}

var expenseFields = Schema[ExpenseIn]{
	"name": {Required: true, Set: func(e *ExpenseIn, raw json.RawMessage, h validate.Hook) error {
		s, err := decodeString("name", raw, h)
		e.Name = s
		return err
	}},
	"amount": {Required: true, Set: func(e *ExpenseIn, raw json.RawMessage, h validate.Hook) error {
		d, err := decodeAmount("amount", raw, h)
		e.Amount = d
		return err
	}},
	"due_date": {Nullable: true, Set: func(e *ExpenseIn, raw json.RawMessage, h validate.Hook) error {
		if isNull(raw) {
			e.DueDate = nil
			h.Observe("due_date", nil, nil)
			return nil
		}
		var n int
		err := decodeInto(raw, &n, validate.ErrFormat)
		if err == nil {
			err = validate.DueDay(&n)
		}
		h.Observe("due_date", string(raw), err)
		e.DueDate = &n
		return err
	}},
	"income_id": {Nullable: true, Set: func(e *ExpenseIn, raw json.RawMessage, h validate.Hook) error {
		id, err := decodeOptionalID("income_id", raw, h)
		e.IncomeID = id
		return err
	}},
}

var expenseUpdateFields = optional(expenseFields)

// NewExpenseIn validates an expense payload; name and amount are required.
func NewExpenseIn(p Patch, h validate.Hook) (ExpenseIn, error) {
	in, err := expenseFields.Build(p, h)
	if err != nil {
		return ExpenseIn{}, err
	}
	if err := validate.Struct(in); err != nil {
		return ExpenseIn{}, err
	}
	return in, nil
}

// ApplyExpenseUpdate merges a partial update into e. A due_date in p is
// range-checked; fields not in p are left as stored.
func ApplyExpenseUpdate(e Expense, p Patch, h validate.Hook) (Expense, error) {
	in, err := expenseUpdateFields.Apply(e.ExpenseIn, p, h)
	if err != nil {
		return e, err
	}
	if err := validate.Struct(in); err != nil {
		return e, err
	}
	e.ExpenseIn = in
	return e, nil
}
