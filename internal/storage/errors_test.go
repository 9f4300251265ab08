package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycheck-tracker/internal/validate"
)

func TestTranslatePostgres(t *testing.T) {
	tests := []struct {
		name  string
		table string
		err   *pgconn.PgError
		kind  error
		field string
	}{
		{"duplicate email", "users", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}, ErrUniqueness, "email"},
		{"second income", "income", &pgconn.PgError{Code: "23505", ConstraintName: "income_user_id_key", TableName: "income"}, ErrUniqueness, "user_id"},
		{"missing income", "expense", &pgconn.PgError{Code: "23503", ConstraintName: "expense_income_id_fkey", TableName: "expense"}, ErrReferential, "income_id"},
		{"unnamed foreign key", "expense", &pgconn.PgError{Code: "23503"}, ErrReferential, "income_id"},
		{"due date check", "expense", &pgconn.PgError{Code: "23514", ConstraintName: "expense_due_date_check"}, validate.ErrRange, "due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.table, fmt.Errorf("exec: %w", tt.err))
			require.ErrorIs(t, err, tt.kind)
			var ce *ConstraintError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
			assert.True(t, IsConstraint(err))

			var pe *pgconn.PgError
			assert.True(t, errors.As(err, &pe), "driver error stays reachable")
		})
	}
}

func TestTranslateOther(t *testing.T) {
	assert.NoError(t, translate("users", nil))
	assert.ErrorIs(t, translate("users", sql.ErrNoRows), ErrNotFound)

	boom := errors.New("boom")
	err := translate("users", boom)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsConstraint(err))

	err = translate("users", &pgconn.PgError{Code: "40001"})
	assert.False(t, IsConstraint(err))
}

func TestQualifiedColumn(t *testing.T) {
	table, col := qualifiedColumn("constraint failed: UNIQUE constraint failed: users.email (2067)", "x")
	assert.Equal(t, "users", table)
	assert.Equal(t, "email", col)

	table, col = qualifiedColumn("UNIQUE constraint failed: income.user_id", "x")
	assert.Equal(t, "income", table)
	assert.Equal(t, "user_id", col)

	table, col = qualifiedColumn("constraint failed: UNIQUE constraint failed: users.username, users.email (2067)", "x")
	assert.Equal(t, "users", table)
	assert.Equal(t, "username", col)

	table, col = qualifiedColumn("constraint failed: FOREIGN KEY constraint failed (787)", "expense")
	assert.Equal(t, "expense", table)
	assert.Empty(t, col)

	table, col = qualifiedColumn("something else", "expense")
	assert.Equal(t, "expense", table)
	assert.Empty(t, col)
}

func TestConstraintErrorMessage(t *testing.T) {
	err := &ConstraintError{Kind: ErrUniqueness, Table: "users", Field: "email"}
	assert.Equal(t, "users.email: uniqueness violation", err.Error())

	err = &ConstraintError{Kind: ErrReferential, Table: "expense"}
	assert.Equal(t, "expense: referential integrity violation", err.Error())
}
