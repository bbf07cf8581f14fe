package routing

// Sink receives a serialised dynamic-route snapshot for durable storage.
type Sink interface {
	PersistRoutes(data []byte) error
}

// Source loads a previously persisted dynamic-route snapshot.
type Source interface {
	LoadRoutes() (data []byte, ok bool, err error)
}

// NullStore is a no-op Sink+Source for when route persistence is disabled.
type NullStore struct{}

// NewNullStore returns a no-op store.
func NewNullStore() *NullStore { return &NullStore{} }

// PersistRoutes discards data.
func (s *NullStore) PersistRoutes(data []byte) error { return nil }

// LoadRoutes always reports no stored snapshot.
func (s *NullStore) LoadRoutes() ([]byte, bool, error) { return nil, false, nil }
