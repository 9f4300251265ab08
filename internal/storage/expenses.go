package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"paycheck-tracker/internal/models"
)

const expenseColumns = `id, user_id, income_id, name, amount, due_date`

// CreateExpense stores an expense for userID. A non-nil IncomeID must name
// one of userID's income records.
func (db *DB) CreateExpense(ctx context.Context, userID int64, in models.ExpenseIn) (models.Expense, error) {
	var out models.Expense
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkIncomeRef(ctx, tx, userID, in.IncomeID); err != nil {
			return err
		}
		id, err := insertID(ctx, tx, "expense",
			`INSERT INTO expense (user_id, income_id, name, amount, due_date) VALUES (?, ?, ?, ?, ?) RETURNING id`,
			userID, in.IncomeID, in.Name, in.Amount, in.DueDate,
		)
		if err != nil {
			return err
		}
		out, err = getExpense(ctx, tx, "id = ? AND user_id = ?", id, userID)
		return err
	})
	return out, err
}

// GetExpense retrieves one of userID's expenses.
func (db *DB) GetExpense(ctx context.Context, userID, id int64) (models.Expense, error) {
	return getExpense(ctx, db.conn, "id = ? AND user_id = ?", id, userID)
}

// ListExpenses returns userID's expenses ordered by due day, undated last.
func (db *DB) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	expenses := []models.Expense{}
	query := db.conn.Rebind(`SELECT ` + expenseColumns + ` FROM expense WHERE user_id = ?
		ORDER BY due_date IS NULL, due_date, id`)
	if err := db.conn.SelectContext(ctx, &expenses, query, userID); err != nil {
		return nil, translate("expense", err)
	}
	return expenses, nil
}

func getExpense(ctx context.Context, q queryer, where string, args ...any) (models.Expense, error) {
	var e models.Expense
	query := q.Rebind(`SELECT ` + expenseColumns + ` FROM expense WHERE ` + where)
	if err := sqlx.GetContext(ctx, q, &e, query, args...); err != nil {
		return models.Expense{}, translate("expense", err)
	}
	return e, nil
}

// UpdateExpense loads the expense, hands it to mutate and saves the result in
// one transaction. A changed income_id is checked like on create.
func (db *DB) UpdateExpense(ctx context.Context, userID, id int64, mutate func(models.Expense) (models.Expense, error)) (models.Expense, error) {
	var out models.Expense
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getExpense(ctx, tx, "id = ? AND user_id = ?"+db.forUpdate(), id, userID)
		if err != nil {
			return err
		}
		next, err := mutate(current)
		if err != nil {
			return err
		}
		if err := checkIncomeRef(ctx, tx, userID, next.IncomeID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE expense SET income_id = ?, name = ?, amount = ?, due_date = ? WHERE id = ? AND user_id = ?`),
			next.IncomeID, next.Name, next.Amount, next.DueDate, id, userID,
		)
		if err != nil {
			return translate("expense", err)
		}
		out, err = getExpense(ctx, tx, "id = ? AND user_id = ?", id, userID)
		return err
	})
	return out, err
}

// DeleteExpense removes one of userID's expenses.
func (db *DB) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM expense WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return translate("expense", err)
	}
	return expectRow(res, "expense")
}

// checkIncomeRef fails with ErrReferential unless incomeID is nil or names an
// income owned by userID. The foreign key alone would accept another user's
// income.
func checkIncomeRef(ctx context.Context, q queryer, userID int64, incomeID *int64) error {
	if incomeID == nil {
		return nil
	}
	var n int
	query := q.Rebind(`SELECT COUNT(*) FROM income WHERE id = ? AND user_id = ?`)
	if err := sqlx.GetContext(ctx, q, &n, query, *incomeID, userID); err != nil {
		return translate("income", err)
	}
	if n == 0 {
		return &ConstraintError{Kind: ErrReferential, Table: "expense", Field: "income_id"}
	}
	return nil
}
