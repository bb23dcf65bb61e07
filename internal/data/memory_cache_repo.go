package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tidyops/fieldwork/internal/core"
)

// MemoryCacheRepo implements the CacheRepository interface with an in-process
// map. It serves single-process deployments and tests; multi-instance
// deployments should use RedisCacheRepo so guards are shared.
type MemoryCacheRepo struct {
	mu           sync.Mutex
	entries      map[string]memoryCacheEntry
	timeProvider TimeProvider
}

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

var _ core.CacheRepository = (*MemoryCacheRepo)(nil)

// NewMemoryCacheRepo creates a new in-memory cache repository.
func NewMemoryCacheRepo(tp TimeProvider) *MemoryCacheRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &MemoryCacheRepo{
		entries:      make(map[string]memoryCacheEntry),
		timeProvider: tp,
	}
}

// Get retrieves a value by key. A missing or expired key returns (nil, nil).
func (m *MemoryCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value with the given TTL. Zero TTL means no expiry.
func (m *MemoryCacheRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.newEntry(value, ttl)
	return nil
}

// SetIfAbsent stores the value only when the key does not exist (or expired).
func (m *MemoryCacheRepo) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.entries[key] = m.newEntry(value, ttl)
	return true, nil
}

// Delete removes a key, reporting whether a live entry existed.
func (m *MemoryCacheRepo) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key)
	delete(m.entries, key)
	return ok, nil
}

// live returns the entry for key if present and unexpired, pruning it otherwise.
// Callers must hold mu.
func (m *MemoryCacheRepo) live(key string) (memoryCacheEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryCacheEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !m.timeProvider.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return memoryCacheEntry{}, false
	}
	return entry, true
}

func (m *MemoryCacheRepo) newEntry(value []byte, ttl time.Duration) memoryCacheEntry {
	stored := make([]byte, len(value))
	copy(stored, value)
	entry := memoryCacheEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = m.timeProvider.Now().Add(ttl)
	}
	return entry
}
