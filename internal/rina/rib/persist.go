package rib

import "context"

// Sink receives a serialised RIB snapshot for durable storage. Concrete
// implementations live under internal/rina/snapshotstore (file, badger, s3,
// postgres). Thread safety: implementations must be safe for concurrent use.
type Sink interface {
	// PersistSnapshot writes data as the latest snapshot, replacing any
	// previously stored snapshot.
	PersistSnapshot(ctx context.Context, data []byte) error
}

// Source loads a previously persisted snapshot.
type Source interface {
	// LoadSnapshot returns the most recently persisted snapshot, or
	// ok=false if none has ever been persisted.
	LoadSnapshot(ctx context.Context) (data []byte, ok bool, err error)
}

// Store combines Sink and Source; every snapshotstore backend implements
// this full interface even though most callers only need one half.
type Store interface {
	Sink
	Source
}

// NullStore is a no-op Store for when snapshot persistence is disabled.
type NullStore struct{}

// NewNullStore returns a no-op Store.
func NewNullStore() *NullStore { return &NullStore{} }

// PersistSnapshot discards data.
func (s *NullStore) PersistSnapshot(ctx context.Context, data []byte) error {
	return nil
}

// LoadSnapshot always reports no stored snapshot.
func (s *NullStore) LoadSnapshot(ctx context.Context) ([]byte, bool, error) {
	return nil, false, nil
}

var _ Store = (*NullStore)(nil)

// PersistSnapshot serialises the RIB and writes it to sink.
func (r *RIB) PersistSnapshot(ctx context.Context, sink Sink) error {
	return sink.PersistSnapshot(ctx, r.SerializeSnapshot())
}

// LoadSnapshot loads the most recent snapshot from source and installs it,
// returning the count of objects loaded and ok=false if source has never
// been persisted to.
func (r *RIB) LoadSnapshot(ctx context.Context, source Source) (count int, ok bool, err error) {
	data, ok, err := source.LoadSnapshot(ctx)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	count, err = r.DeserializeSnapshot(data)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}
