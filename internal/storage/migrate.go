package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrate applies the embedded migrations for the DB's driver.
func (db *DB) migrate() error {
	var (
		driver database.Driver
		err    error
	)
	switch db.driver {
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	case DriverPostgres:
		driver, err = migratepgx.WithInstance(db.conn.DB, &migratepgx.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", db.driver)
	}
	if err != nil {
		return fmt.Errorf("create %s migration driver: %w", db.driver, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+db.driver)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	// m.Close would also close the shared *sql.DB, so only the source is closed.
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, db.driver, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	db.version = version
	return nil
}

// SchemaVersion is the migration the schema was left at by Open.
func (db *DB) SchemaVersion() uint {
	return db.version
}
