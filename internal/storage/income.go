package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"paycheck-tracker/internal/models"
)

const incomeColumns = `id, user_id, amount, recent_pay, last_pay`

// CreateIncome stores the income record for userID. A user has at most one;
// a second create fails with ErrUniqueness on user_id.
func (db *DB) CreateIncome(ctx context.Context, userID int64, in models.IncomeIn) (models.Income, error) {
	var out models.Income
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := insertID(ctx, tx, "income",
			`INSERT INTO income (user_id, amount, recent_pay, last_pay) VALUES (?, ?, ?, ?) RETURNING id`,
			userID, in.Amount, in.RecentPay, in.LastPay,
		)
		if err != nil {
			return err
		}
		out, err = getIncome(ctx, tx, "id = ? AND user_id = ?", id, userID)
		return err
	})
	return out, err
}

// GetIncome retrieves one of userID's income records.
func (db *DB) GetIncome(ctx context.Context, userID, id int64) (models.Income, error) {
	return getIncome(ctx, db.conn, "id = ? AND user_id = ?", id, userID)
}

// GetIncomeForUser retrieves userID's income record.
func (db *DB) GetIncomeForUser(ctx context.Context, userID int64) (models.Income, error) {
	return getIncome(ctx, db.conn, "user_id = ?", userID)
}

func getIncome(ctx context.Context, q queryer, where string, args ...any) (models.Income, error) {
	var inc models.Income
	query := q.Rebind(`SELECT ` + incomeColumns + ` FROM income WHERE ` + where)
	if err := sqlx.GetContext(ctx, q, &inc, query, args...); err != nil {
		return models.Income{}, translate("income", err)
	}
	return inc, nil
}

// UpdateIncome loads the income, hands it to mutate and saves the result in
// one transaction.
func (db *DB) UpdateIncome(ctx context.Context, userID, id int64, mutate func(models.Income) (models.Income, error)) (models.Income, error) {
	var out models.Income
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getIncome(ctx, tx, "id = ? AND user_id = ?"+db.forUpdate(), id, userID)
		if err != nil {
			return err
		}
		next, err := mutate(current)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE income SET amount = ?, recent_pay = ?, last_pay = ? WHERE id = ? AND user_id = ?`),
			next.Amount, next.RecentPay, next.LastPay, id, userID,
		)
		if err != nil {
			return translate("income", err)
		}
		out, err = getIncome(ctx, tx, "id = ? AND user_id = ?", id, userID)
		return err
	})
	return out, err
}

// DeleteIncome removes one of userID's income records. Expenses that
// referenced it keep existing with no income.
func (db *DB) DeleteIncome(ctx context.Context, userID, id int64) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM income WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return translate("income", err)
	}
	return expectRow(res, "income")
}
