package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"paycheck-tracker/internal/models"
)

const userColumns = `id, username, email, first_name, phone_number, hashed_password, disabled, created_at`

// CreateUser stores u and returns it with its generated id.
func (db *DB) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	var out models.User
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := insertID(ctx, tx, "users",
			`INSERT INTO users (username, email, first_name, phone_number, hashed_password, disabled)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			u.Username, u.Email, u.FirstName, u.PhoneNumber, u.HashedPassword, u.Disabled,
		)
		if err != nil {
			return err
		}
		out, err = getUser(ctx, tx, "id = ?", id)
		return err
	})
	return out, err
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return getUser(ctx, db.conn, "id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return getUser(ctx, db.conn, "username = ?", username)
}

func getUser(ctx context.Context, q queryer, where string, arg any) (models.User, error) {
	var u models.User
	query := q.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	if err := sqlx.GetContext(ctx, q, &u, query, arg); err != nil {
		return models.User{}, translate("users", err)
	}
	return u, nil
}

// UpdateUser loads the user, hands it to mutate and saves the result, all in
// one transaction. An error from mutate aborts the update unchanged.
func (db *DB) UpdateUser(ctx context.Context, id int64, mutate func(models.User) (models.User, error)) (models.User, error) {
	var out models.User
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getUser(ctx, tx, "id = ?"+db.forUpdate(), id)
		if err != nil {
			return err
		}
		next, err := mutate(current)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE users SET username = ?, email = ?, first_name = ?, phone_number = ?, hashed_password = ?
			WHERE id = ?`),
			next.Username, next.Email, next.FirstName, next.PhoneNumber, next.HashedPassword, id,
		)
		if err != nil {
			return translate("users", err)
		}
		out, err = getUser(ctx, tx, "id = ?", id)
		return err
	})
	return out, err
}

// SetUserDisabled enables or disables the named user.
func (db *DB) SetUserDisabled(ctx context.Context, username string, disabled bool) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`UPDATE users SET disabled = ? WHERE username = ?`), disabled, username)
	if err != nil {
		return translate("users", err)
	}
	return expectRow(res, "users")
}

// DeleteUser removes a user. Their income and expenses go with them.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return translate("users", err)
	}
	return expectRow(res, "users")
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM users")
	return count, err
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffected, table string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", table, ErrNotFound)
	}
	return nil
}
