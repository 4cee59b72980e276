package storage

import (
	"context"
	"sync"
	"time"

	"notesd/core"
)

// MemoryStore is the default process-lifetime store. Contents are lost on
// restart; growth is unbounded. Both limitations are in scope for the
// single-process deployment this store targets.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string]core.TokenBundle
	states  map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bundles: make(map[string]core.TokenBundle),
		states:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetNow overrides the time function (for testing).
func (m *MemoryStore) SetNow(fn func() time.Time) {
	m.now = fn
}

func (m *MemoryStore) Save(ctx context.Context, bundle *core.TokenBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bundles[bundle.UserID] = *bundle
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, userID string) (*core.TokenBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bundle, ok := m.bundles[userID]
	if !ok {
		return nil, core.ErrNotFound
	}

	return &bundle, nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bundles, userID)
	return nil
}

func (m *MemoryStore) SaveState(ctx context.Context, state string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Opportunistic pruning keeps abandoned login attempts from piling up.
	now := m.now()
	for s, exp := range m.states {
		if now.After(exp) {
			delete(m.states, s)
		}
	}

	m.states[state] = expiresAt
	return nil
}

func (m *MemoryStore) ConsumeState(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.states[state]
	if !ok {
		return core.ErrNotFound
	}

	delete(m.states, state)

	if m.now().After(expiresAt) {
		return core.ErrNotFound
	}

	return nil
}
