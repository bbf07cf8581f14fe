// Package file implements a RIB snapshot Store backed by a single local
// file, written atomically via write-then-rename, the default backend
// when snapshot persistence is enabled.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rinacore/ipcpd/internal/rina/rib"
)

// Store persists a RIB snapshot to a single file on local disk.
type Store struct {
	path string
}

// New returns a Store writing snapshots to path.
func New(path string) *Store {
	return &Store{path: path}
}

// PersistSnapshot writes data to a temp file in the same directory and
// renames it over the target path, so a crash mid-write never leaves a
// truncated snapshot in place.
func (s *Store) PersistSnapshot(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshotstore/file: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshotstore/file: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshotstore/file: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshotstore/file: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshotstore/file: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshotstore/file: rename: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot file, reporting ok=false if it does
// not exist yet.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("snapshotstore/file: read: %w", err)
	}
	return data, true, nil
}

var _ rib.Store = (*Store)(nil)
