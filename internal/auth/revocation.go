package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RevocationStore is the token denylist. Record is an idempotent upsert;
// a later Record for the same id replaces the expiry.
type RevocationStore interface {
	Record(ctx context.Context, tokenID string, expiry time.Time) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// Purger removes denylist entries whose expiry is before the cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// MemoryRevocations is an in-process RevocationStore.
type MemoryRevocations struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryRevocations returns an empty store.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time)}
}

func (m *MemoryRevocations) Record(ctx context.Context, tokenID string, expiry time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("record revocation: empty token id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[tokenID] = expiry
	return nil
}

func (m *MemoryRevocations) Contains(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[tokenID]
	return ok, nil
}

func (m *MemoryRevocations) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, expiry := range m.entries {
		if expiry.Before(before) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

// Expiry returns the recorded expiry for tokenID.
func (m *MemoryRevocations) Expiry(tokenID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.entries[tokenID]
	return exp, ok
}

// Len reports the number of entries.
func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
