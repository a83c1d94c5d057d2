package token

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds a cached value with its expiry deadline.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryTier is the fast storage tier: an in-process TTL map shared by all
// sessions. Expired entries are dropped lazily on read.
type MemoryTier struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

// NewMemoryTier creates an in-memory tier. A nil clock defaults to time.Now.
func NewMemoryTier(clock func() time.Time) *MemoryTier {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTier{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

// Get returns the cached value for the slot, treating expired entries as misses.
func (m *MemoryTier) Get(_ context.Context, sessionID, slot string) (string, bool, error) {
	key := memoryKey(sessionID, slot)

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if !entry.expiresAt.IsZero() && !m.clock().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false, nil
	}

	return entry.value, true, nil
}

// Set stores a single slot entry.
func (m *MemoryTier) Set(_ context.Context, sessionID, slot string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[memoryKey(sessionID, slot)] = memoryEntry{
		value:     entry.Value,
		expiresAt: entry.ExpiresAt,
	}
	return nil
}

// SetPair stores both slots under one lock so readers never observe a
// partially updated pair.
func (m *MemoryTier) SetPair(_ context.Context, sessionID string, access, refresh Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[memoryKey(sessionID, SlotAccess)] = memoryEntry{
		value:     access.Value,
		expiresAt: access.ExpiresAt,
	}
	m.entries[memoryKey(sessionID, SlotRefresh)] = memoryEntry{
		value:     refresh.Value,
		expiresAt: refresh.ExpiresAt,
	}
	return nil
}

// Clear removes both slots for the session. Idempotent.
func (m *MemoryTier) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, memoryKey(sessionID, SlotAccess))
	delete(m.entries, memoryKey(sessionID, SlotRefresh))
	return nil
}

// memoryKey builds the cache key for a session slot.
func memoryKey(sessionID, slot string) string {
	return sessionID + "/" + slot
}
