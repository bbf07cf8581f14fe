// Package postgres implements a RIB snapshot Store backed by a
// dedicated PostgreSQL table, schema-managed with golang-migrate, for
// deployments that already centralize state in Postgres.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rinacore/ipcpd/internal/rina/rib"
)

// Store persists a RIB snapshot as the single row of the rib_snapshots
// table.
type Store struct {
	db *sql.DB
}

// Open connects to connString, runs pending migrations and returns a
// Store backed by the connection. Callers own the returned Store and
// must call Close.
func Open(ctx context.Context, connString string) (*Store, error) {
	if err := runMigrations(connString); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore/postgres: open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshotstore/postgres: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// PersistSnapshot upserts data as the singleton snapshot row.
func (s *Store) PersistSnapshot(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rib_snapshots (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, data)
	if err != nil {
		return fmt.Errorf("snapshotstore/postgres: persist: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, reporting ok=false if the
// table has never been written to.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM rib_snapshots WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshotstore/postgres: load: %w", err)
	}
	return data, true, nil
}

var _ rib.Store = (*Store)(nil)
