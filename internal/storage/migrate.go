package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var ledgerMigrations embed.FS

// ledgerMigrator opens a dedicated connection for golang-migrate; closing
// the migrator must not close the ledger's own pool.
func ledgerMigrator(dbPath string) (*migrate.Migrate, func(), error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger for migration: %w", err)
	}
	fail := func(step string, err error) (*migrate.Migrate, func(), error) {
		conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", step, err)
	}

	target, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return fail("sqlite migration driver", err)
	}
	source, err := iofs.New(ledgerMigrations, "migrations")
	if err != nil {
		return fail("embedded ledger migrations", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return fail("ledger migrator", err)
	}
	return m, func() {
		m.Close()
		conn.Close()
	}, nil
}

// RunMigrations applies every pending ledger migration at dbPath.
func RunMigrations(dbPath string) error {
	m, done, err := ledgerMigrator(dbPath)
	if err != nil {
		return err
	}
	defer done()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply ledger migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied ledger schema version and whether a
// previous migration was left half-applied.
func SchemaVersion(dbPath string) (version uint, dirty bool, err error) {
	m, done, err := ledgerMigrator(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer done()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
