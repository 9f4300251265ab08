package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"paycheck-tracker/internal/validate"
)

// IncomeIn is a validated pay-cycle payload. Dates arrive as MM-DD-YYYY and
// are normalized to Date before anything else looks at them.
type IncomeIn struct {
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	RecentPay Date            `json:"recent_pay" db:"recent_pay"`
	// LastPay is expected to be one pay cycle before RecentPay. Nothing here
	// enforces that; see paycycle.CheckLastPay.
	LastPay *Date `json:"last_pay" db:"last_pay"`
}

// Income is a stored pay-cycle record. A user has at most one.
type Income struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`
	IncomeIn
}

var incomeFields = Schema[IncomeIn]{
	"amount": {Required: true, Set: func(in *IncomeIn, raw json.RawMessage, h validate.Hook) error {
		d, err := decodeAmount("amount", raw, h)
		in.Amount = d
		return err
	}},
	"recent_pay": {Required: true, Set: func(in *IncomeIn, raw json.RawMessage, h validate.Hook) error {
		d, err := decodePayDate("recent_pay", raw, h)
		in.RecentPay = d
		return err
	}},
	"last_pay": {Nullable: true, Set: func(in *IncomeIn, raw json.RawMessage, h validate.Hook) error {
		if isNull(raw) {
			in.LastPay = nil
			h.Observe("last_pay", nil, nil)
			return nil
		}
		d, err := decodePayDate("last_pay", raw, h)
		in.LastPay = &d
		return err
	}},
}

var incomeUpdateFields = optional(incomeFields)

// NewIncomeIn validates an income payload; amount and recent_pay are required.
func NewIncomeIn(p Patch, h validate.Hook) (IncomeIn, error) {
	return incomeFields.Build(p, h)
}

// ApplyIncomeUpdate merges a partial update into inc. Dates supplied in p are
// re-parsed; omitted fields keep their stored values.
func ApplyIncomeUpdate(inc Income, p Patch, h validate.Hook) (Income, error) {
	in, err := incomeUpdateFields.Apply(inc.IncomeIn, p, h)
	if err != nil {
		return inc, err
	}
	inc.IncomeIn = in
	return inc, nil
}
