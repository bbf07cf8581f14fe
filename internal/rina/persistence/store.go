// Package persistence provides a GORM-backed durable store for an
// IPCP's identity, address-pool allocation set and dynamic route table,
// so a restarted IPCP does not need to re-enrol from scratch. Disabled
// by default; spec.md leaves this as an open question, resolved here in
// favour of optional durability (see DESIGN.md).
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialect selects the backing SQL engine.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config configures the durable store.
type Config struct {
	Dialect  Dialect
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// SQLiteConfig is the SQLite-specific connection configuration.
type SQLiteConfig struct {
	Path string
}

// PostgresConfig is the PostgreSQL-specific connection configuration.
type PostgresConfig struct {
	DSN string
}

// ApplyDefaults fills unset fields of c with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Dialect == "" {
		c.Dialect = DialectSQLite
	}
	if c.Dialect == DialectSQLite && c.SQLite.Path == "" {
		c.SQLite.Path = filepath.Join(".", "ipcpd.db")
	}
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	switch c.Dialect {
	case DialectSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("persistence: sqlite path is required")
		}
	case DialectPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("persistence: postgres dsn is required")
		}
	default:
		return fmt.Errorf("persistence: unsupported dialect %q", c.Dialect)
	}
	return nil
}

// LocalIdentity is the singleton row holding this IPCP's assigned
// address, keyed by ID=1.
type LocalIdentity struct {
	ID        uint `gorm:"primaryKey"`
	LocalAddr uint64
}

// AllocatedAddress is one address currently held out of the
// AddressPool range.
type AllocatedAddress struct {
	Addr uint64 `gorm:"primaryKey"`
}

// DynamicRoute is one row of the persisted dynamic route table, mirroring
// routing.dynamicRecord.
type DynamicRoute struct {
	Dst             uint64 `gorm:"primaryKey"`
	NextHopAddr     uint64
	NextHopEndpoint string
	ExpiresAtUnix   int64
}

func allModels() []interface{} {
	return []interface{}{&LocalIdentity{}, &AllocatedAddress{}, &DynamicRoute{}}
}

// Store is the durable backing store for an IPCP's restart-surviving
// state.
type Store struct {
	db *gorm.DB
}

// Open connects to the database described by cfg and runs AutoMigrate.
func Open(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("persistence: create database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case DialectPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("persistence: unsupported dialect %q", cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("persistence: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying GORM connection, for tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// SaveLocalAddress upserts this IPCP's assigned address.
func (s *Store) SaveLocalAddress(ctx context.Context, addr uint64) error {
	return s.db.WithContext(ctx).Save(&LocalIdentity{ID: 1, LocalAddr: addr}).Error
}

// LoadLocalAddress returns the previously saved address, or ok=false if
// none has been persisted.
func (s *Store) LoadLocalAddress(ctx context.Context) (addr uint64, ok bool, err error) {
	var row LocalIdentity
	result := s.db.WithContext(ctx).First(&row, 1)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("persistence: load local address: %w", result.Error)
	}
	return row.LocalAddr, true, nil
}

// SaveAllocated records addr as allocated, idempotently.
func (s *Store) SaveAllocated(ctx context.Context, addr uint64) error {
	return s.db.WithContext(ctx).Save(&AllocatedAddress{Addr: addr}).Error
}

// DeleteAllocated removes addr from the allocated set.
func (s *Store) DeleteAllocated(ctx context.Context, addr uint64) error {
	return s.db.WithContext(ctx).Delete(&AllocatedAddress{}, addr).Error
}

// ListAllocated returns every currently allocated address.
func (s *Store) ListAllocated(ctx context.Context) ([]uint64, error) {
	var rows []AllocatedAddress
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("persistence: list allocated: %w", err)
	}
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.Addr
	}
	return out, nil
}

// SaveRoute upserts one dynamic route.
func (s *Store) SaveRoute(ctx context.Context, r DynamicRoute) error {
	return s.db.WithContext(ctx).Save(&r).Error
}

// DeleteRoute removes the dynamic route to dst.
func (s *Store) DeleteRoute(ctx context.Context, dst uint64) error {
	return s.db.WithContext(ctx).Delete(&DynamicRoute{}, dst).Error
}

// ListRoutes returns every persisted dynamic route.
func (s *Store) ListRoutes(ctx context.Context) ([]DynamicRoute, error) {
	var rows []DynamicRoute
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("persistence: list routes: %w", err)
	}
	return rows, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
