package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage with an in-process map. Used in
// tests and single-instance development setups.
type MemoryStorage struct {
	mu    sync.RWMutex
	byUID map[uuid.UUID][]Notification
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{byUID: make(map[uuid.UUID][]Notification)}
}

func (m *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUID[notif.UserID] = append(m.byUID[notif.UserID], notif)
	return nil
}

func (m *MemoryStorage) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.byUID[userID]
	filtered := make([]Notification, 0, len(all))
	for _, n := range all {
		if opts.OnlyUnread && n.Read {
			continue
		}
		filtered = append(filtered, n)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(filtered) {
			return []Notification{}, nil
		}
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

func (m *MemoryStorage) MarkRead(ctx context.Context, userID uuid.UUID, notifIDs ...uuid.UUID) error {
	ids := make(map[uuid.UUID]struct{}, len(notifIDs))
	for _, id := range notifIDs {
		ids[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	list := m.byUID[userID]
	for i := range list {
		if _, ok := ids[list[i].ID]; ok && !list[i].Read {
			list[i].Read = true
			list[i].ReadAt = &now
		}
	}
	return nil
}

func (m *MemoryStorage) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	list := m.byUID[userID]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			list[i].ReadAt = &now
		}
	}
	return nil
}

func (m *MemoryStorage) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.byUID[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

var _ Storage = (*MemoryStorage)(nil)
