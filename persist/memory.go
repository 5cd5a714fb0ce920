// persist/memory.go
package persist

import "sync"

// Memory is an in-memory snapshot store for tests.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]byte
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]byte)}
}

// SaveSnapshot replaces the stored snapshot for a table.
func (m *Memory) SaveSnapshot(table string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append([]byte(nil), data...)
	return nil
}

// LoadSnapshot returns the stored snapshot, or ErrNoSnapshot.
func (m *Memory) LoadSnapshot(table string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.tables[table]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), data...), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
