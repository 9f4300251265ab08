package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	// Register the pgx database/sql driver as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers as "sqlite"; make sure sqlx rebinds it with ? placeholders.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB wraps a sqlx connection pool for either sqlite or postgres.
type DB struct {
	conn    *sqlx.DB
	driver  string
	version uint
}

// NewDB opens a sqlite database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	return Open(context.Background(), DriverSQLite, path)
}

// Open connects to the database named by dsn and brings its schema up to date.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	switch driver {
	case DriverSQLite:
		conn, err = sqlx.ConnectContext(ctx, "sqlite", sqliteDSN(dsn))
		if err == nil {
			// One connection keeps :memory: databases alive and serializes writers.
			conn.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		conn, err = sqlx.ConnectContext(ctx, "pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// sqliteDSN turns on foreign key enforcement, which sqlite leaves off by default.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Driver reports which driver the DB was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// forUpdate locks selected rows until the transaction ends. sqlite has no row
// locks; its single connection already serializes transactions.
func (db *DB) forUpdate() string {
	if db.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(query string) string
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// insertID runs an INSERT ... RETURNING id statement.
func insertID(ctx context.Context, tx *sqlx.Tx, table, query string, args ...any) (int64, error) {
	var id int64
	if err := tx.QueryRowxContext(ctx, tx.Rebind(query), args...).Scan(&id); err != nil {
		return 0, translate(table, err)
	}
	return id, nil
}
