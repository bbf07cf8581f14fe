package postgres

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/snapshotstore/postgres/migrations"
)

// runMigrations applies pending migrations, using golang-migrate's
// postgres advisory lock so concurrent IPCP instances never race each
// other's schema changes.
func runMigrations(connString string) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("snapshotstore/postgres: open connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "rib_snapshot_schema_migrations",
		DatabaseName:    "ipcpd",
	})
	if err != nil {
		return fmt.Errorf("snapshotstore/postgres: create driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("snapshotstore/postgres: create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("snapshotstore/postgres: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("snapshotstore/postgres: apply migrations: %w", err)
	}

	_, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("snapshotstore/postgres: read migration version: %w", err)
	}
	if dirty {
		logger.Warn("snapshotstore/postgres: schema is dirty, manual intervention may be required")
	}
	return nil
}
