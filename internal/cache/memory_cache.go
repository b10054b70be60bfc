package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// memoryCache is an in-process CacheService used in tests and in environments
// without a Redis backend. Values round-trip through JSON so behavior matches
// the Redis implementation.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryCache() CacheService {
	return &memoryCache{
		entries: make(map[string]memoryEntry),
	}
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return ErrCacheMiss
	}
	return json.Unmarshal(entry.data, dest)
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")

	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	return nil
}
