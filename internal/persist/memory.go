package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory keeps snapshots as encoded JSON in process memory, the server-side
// analog of browser local storage. Values are copied on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[Key][]byte)}
}

// Load decodes the stored snapshot for key.
func (m *Memory) Load(ctx context.Context, key Key) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return Empty(key), nil
	}

	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	if err := CheckSchema(s.Schema); err != nil {
		return nil, err
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	return &s, nil
}

// Save encodes s and replaces any previous snapshot under its key.
func (m *Memory) Save(ctx context.Context, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", s.Key(), err)
	}

	m.mu.Lock()
	m.data[s.Key()] = raw
	m.mu.Unlock()
	return nil
}

// Ensure Memory implements Store
var _ Store = (*Memory)(nil)
