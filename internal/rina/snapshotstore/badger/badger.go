// Package badger implements a RIB snapshot Store backed by BadgerDB, for
// deployments that already run an embedded key-value store and would
// rather not add a plain file or a SQL database to the mix.
package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/rinacore/ipcpd/internal/rina/rib"
)

// snapshotKey is the single well-known key under which the latest RIB
// snapshot is stored. Only one snapshot is ever kept.
var snapshotKey = []byte("ipcpd:rib:snapshot")

// Store persists a RIB snapshot as one key in a BadgerDB database.
type Store struct {
	db *badgerdb.DB
}

// Open opens (creating if absent) a BadgerDB database at dir and returns a
// Store backed by it. Callers own the returned Store and must call Close.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore/badger: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PersistSnapshot overwrites the stored snapshot with data.
func (s *Store) PersistSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(snapshotKey, data)
	})
	if err != nil {
		return fmt.Errorf("snapshotstore/badger: persist: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot, reporting ok=false if none has
// been persisted yet.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("snapshotstore/badger: load: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

var _ rib.Store = (*Store)(nil)
