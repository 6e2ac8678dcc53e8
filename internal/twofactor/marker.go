package twofactor

import (
	"context"
	"sync"
	"time"
)

// DefaultMarkerTTL bounds how long a completed code check stays valid
// before the user must enter a code again.
const DefaultMarkerTTL = 5 * time.Minute

// MarkerStore records which accounts have completed the two-factor
// code check. Markers expire on their own after the configured TTL.
type MarkerStore interface {
	MarkVerified(ctx context.Context, userID string) error
	IsVerified(ctx context.Context, userID string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

// MemoryMarkerStore implements MarkerStore with an in-process map.
// Suitable for single-instance deployments and tests.
type MemoryMarkerStore struct {
	mu      sync.RWMutex
	markers map[string]time.Time
	ttl     time.Duration
	ticker  *time.Ticker
	done    chan struct{}
}

// NewMemoryMarkerStore creates a memory-backed marker store. A cleanup
// loop runs at cleanupInterval when it is positive; call Close to stop it.
func NewMemoryMarkerStore(ttl, cleanupInterval time.Duration) *MemoryMarkerStore {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	store := &MemoryMarkerStore{
		markers: make(map[string]time.Time),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}
	return store
}

func (m *MemoryMarkerStore) MarkVerified(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMarkerStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[userID] = time.Now().Add(m.ttl)
	return nil
}

func (m *MemoryMarkerStore) IsVerified(ctx context.Context, userID string) (bool, error) {
	m.mu.RLock()
	expiresAt, exists := m.markers[userID]
	m.mu.RUnlock()

	if !exists {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		m.mu.Lock()
		delete(m.markers, userID)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (m *MemoryMarkerStore) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, userID)
	return nil
}

// Close stops the background cleanup loop.
func (m *MemoryMarkerStore) Close() {
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.done)
	}
}

func (m *MemoryMarkerStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			now := time.Now()
			m.mu.Lock()
			for id, expiresAt := range m.markers {
				if now.After(expiresAt) {
					delete(m.markers, id)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

var _ MarkerStore = (*MemoryMarkerStore)(nil)
