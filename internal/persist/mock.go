package persist

import (
	"context"
)

// Mock implements Store for testing.
// Each method can be configured via function fields.
type Mock struct {
	LoadFunc func(ctx context.Context, key Key) (*Snapshot, error)
	SaveFunc func(ctx context.Context, s *Snapshot) error
}

// Load calls the configured LoadFunc or returns an empty snapshot.
func (m *Mock) Load(ctx context.Context, key Key) (*Snapshot, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, key)
	}
	return Empty(key), nil
}

// Save calls the configured SaveFunc or discards the snapshot.
func (m *Mock) Save(ctx context.Context, s *Snapshot) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, s)
	}
	return nil
}

var _ Store = (*Mock)(nil)
