package snapshot

import (
	"context"
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
)

// MemoryStore keeps snapshots in a map. Content values are immutable, so
// they are shared rather than copied.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[Key]content.Content
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[Key]content.Content)}
}

func (m *MemoryStore) Set(_ context.Context, key Key, c content.Content) error {
	if c == nil {
		return errNilContent(key)
	}
	m.mu.Lock()
	m.snapshots[key] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Query(_ context.Context, key Key) (content.Content, error) {
	m.mu.RLock()
	c, ok := m.snapshots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(key)
	}
	return c, nil
}

func (m *MemoryStore) Names(_ context.Context, item, rep string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := []string{}
	for k := range m.snapshots {
		if k.Item == item && k.Rep == rep {
			names = append(names, k.Snapshot)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Clear(_ context.Context, item, rep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.snapshots {
		if k.Item == item && k.Rep == rep {
			delete(m.snapshots, k)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
