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
var migrationsFS embed.FS

// upgradeSchema applies the embedded share history migrations on db itself and returns
// the schema version it ends at. Working on the open handle keeps in-memory databases
// usable, so the migrator is never closed: closing it would close db.
func upgradeSchema(db *sql.DB) (uint, error) {
	migrations, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load embedded migrations: %w", err)
	}
	defer migrations.Close()

	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("attach migrator: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("prepare migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("share history schema %d is dirty", version)
	}
	return version, nil
}
