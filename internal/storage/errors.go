package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"paycheck-tracker/internal/validate"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueness is returned when a write collides with a unique column.
	ErrUniqueness = errors.New("uniqueness violation")
	// ErrReferential is returned when a write references a record that does
	// not exist.
	ErrReferential = errors.New("referential integrity violation")
)

// ConstraintError reports which column a write violated. Kind is one of
// ErrUniqueness, ErrReferential or validate.ErrRange for CHECK constraints.
type ConstraintError struct {
	Kind  error
	Table string
	Field string
	Err   error
}

func (e *ConstraintError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Table, e.Kind)
	}
	return fmt.Sprintf("%s.%s: %v", e.Table, e.Field, e.Kind)
}

func (e *ConstraintError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsConstraint reports whether err came from a violated database constraint.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// foreignKeys names the one client-controlled reference per table, used when
// the driver does not say which foreign key failed.
var foreignKeys = map[string]string{
	"income":  "user_id",
	"expense": "income_id",
}

// pgConstraints maps postgres constraint names to their column.
var pgConstraints = map[string]string{
	"users_username_key":     "username",
	"users_email_key":        "email",
	"income_user_id_key":     "user_id",
	"income_user_id_fkey":    "user_id",
	"income_amount_check":    "amount",
	"expense_user_id_fkey":   "user_id",
	"expense_income_id_fkey": "income_id",
	"expense_amount_check":   "amount",
	"expense_due_date_check": "due_date",
}

// translate converts driver errors into the package's error kinds.
func translate(table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", table, ErrNotFound)
	}

	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fromSQLite(table, se)
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		if ce := fromPostgres(table, pe); ce != nil {
			return ce
		}
	}
	return fmt.Errorf("%s: %w", table, err)
}

// fromSQLite parses messages such as
// "UNIQUE constraint failed: users.email" or "FOREIGN KEY constraint failed".
func fromSQLite(table string, se *sqlite.Error) error {
	msg := se.Error()
	ce := &ConstraintError{Table: table, Err: se}
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		ce.Kind = ErrUniqueness
		ce.Table, ce.Field = qualifiedColumn(msg, table)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		ce.Kind = ErrReferential
		ce.Field = foreignKeys[table]
	case strings.Contains(msg, "CHECK constraint failed"):
		ce.Kind = validate.ErrRange
		ce.Field = checkedColumn(msg)
	default:
		return fmt.Errorf("%s: %w", table, se)
	}
	return ce
}

func fromPostgres(table string, pe *pgconn.PgError) *ConstraintError {
	ce := &ConstraintError{Table: table, Field: pgConstraints[pe.ConstraintName], Err: pe}
	if pe.TableName != "" {
		ce.Table = pe.TableName
	}
	switch pe.Code {
	case "23505": // unique_violation
		ce.Kind = ErrUniqueness
	case "23503": // foreign_key_violation
		ce.Kind = ErrReferential
		if ce.Field == "" {
			ce.Field = foreignKeys[table]
		}
	case "23514": // check_violation
		ce.Kind = validate.ErrRange
	default:
		return nil
	}
	return ce
}

// qualifiedColumn pulls "table.column" out of a sqlite constraint message
// such as "constraint failed: UNIQUE constraint failed: users.email (2067)".
func qualifiedColumn(msg, table string) (string, string) {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return table, ""
	}
	rest := msg[i+len(marker):]
	rest, _, _ = strings.Cut(rest, ",")
	rest, _, _ = strings.Cut(rest, " ")
	t, col, ok := strings.Cut(rest, ".")
	if !ok || t == "" || col == "" {
		return table, ""
	}
	return t, col
}

func checkedColumn(msg string) string {
	for _, col := range []string{"due_date", "amount"} {
		if strings.Contains(msg, col) {
			return col
		}
	}
	return ""
}
