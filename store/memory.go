package store

import (
	"context"
	"sync"
)

// MemoryStore keeps tables in process memory. It backs dry runs and tests;
// SetErr makes every call fail until cleared.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[Table][]Row
	err    error
	writes int
}

func NewMemory() *MemoryStore {
	return &MemoryStore{tables: make(map[Table][]Row)}
}

// SetErr makes subsequent calls return err; nil restores service.
func (m *MemoryStore) SetErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Writes counts successful Overwrite and Append calls.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		c := make(Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

func (m *MemoryStore) Read(_ context.Context, t Table) ([]Row, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return copyRows(m.tables[t]), nil
}

func (m *MemoryStore) Overwrite(_ context.Context, t Table, rows []Row) error {
	if err := checkTable(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tables[t] = copyRows(rows)
	m.writes++
	return nil
}

func (m *MemoryStore) Append(_ context.Context, t Table, rows ...Row) error {
	if err := checkTable(t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tables[t] = append(m.tables[t], copyRows(rows)...)
	m.writes++
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MemoryStore) Close() error { return nil }
