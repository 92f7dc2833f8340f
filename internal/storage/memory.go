package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps values in process memory. It backs tests and the CLI's
// in-memory mode.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	opts Options
	now  func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		opts: opts,
		now:  time.Now,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[m.opts.scopedKey(key)]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := m.opts.checkQuota(key, value); err != nil {
		return err
	}
	entry := memoryEntry{value: value}
	if m.opts.TTL > 0 {
		entry.expiresAt = m.now().Add(m.opts.TTL)
	}
	m.mu.Lock()
	m.data[m.opts.scopedKey(key)] = entry
	m.mu.Unlock()
	return nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, m.opts.scopedKey(key))
	m.mu.Unlock()
	return nil
}
