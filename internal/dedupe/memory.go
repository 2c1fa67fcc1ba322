package dedupe

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	hits   int64
	misses int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// Seen implements Store.
func (m *MemoryStore) Seen(_ context.Context, text string) (bool, error) {
	key := TextHash(text)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[key]; ok {
		m.hits++
		return true, nil
	}
	m.seen[key] = struct{}{}
	m.misses++
	return false, nil
}

// Stats implements Store.
func (m *MemoryStore) Stats(context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &Stats{
		Hits:      m.hits,
		Misses:    m.misses,
		HitRate:   hitRate(m.hits, m.misses),
		TotalKeys: int64(len(m.seen)),
	}, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen = make(map[string]struct{})
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
