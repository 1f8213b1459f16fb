package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in a slice
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
	closed  bool
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) Record(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e.ID = m.nextID
	m.nextID++
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Page{}, ErrClosed
	}

	var matched []Entry
	for _, e := range m.entries {
		if q.TripID != "" && e.TripID != q.TripID {
			continue
		}
		if q.Kind != "" && e.Kind != q.Kind {
			continue
		}
		matched = append(matched, e)
	}
	if q.Order == "desc" {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	start := (q.Page - 1) * q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return newPage(append([]Entry(nil), matched[start:end]...), len(matched), q), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
