package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campusfix/campusfix/pkg/logger"
)

// Deliverer pushes a stored notification out-of-band, for example by
// email. Delivery is best effort.
type Deliverer interface {
	Deliver(ctx context.Context, notif Notification) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, notif Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, notif Notification) error {
	return f(ctx, notif)
}

// NoOpDeliverer drops notifications, leaving them in-app only.
type NoOpDeliverer struct{}

func (NoOpDeliverer) Deliver(ctx context.Context, notif Notification) error { return nil }

// Manager orchestrates notification storage and delivery.
type Manager struct {
	storage   Storage
	deliverer Deliverer
	log       *slog.Logger
}

type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the manager.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a notification manager. A nil deliverer keeps
// notifications in-app only.
func NewManager(storage Storage, deliverer Deliverer, opts ...ManagerOption) *Manager {
	if deliverer == nil {
		deliverer = NoOpDeliverer{}
	}
	m := &Manager{
		storage:   storage,
		deliverer: deliverer,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send stores the notification and then attempts delivery. The store
// happens first so a delivery failure never loses the notification.
func (m *Manager) Send(ctx context.Context, notif Notification) error {
	if notif.ID == uuid.Nil {
		notif.ID = uuid.New()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	if err := m.storage.Create(ctx, notif); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if err := m.deliverer.Deliver(ctx, notif); err != nil {
		m.log.WarnContext(ctx, "notification stored but delivery failed",
			slog.String("notification_id", notif.ID.String()),
			logger.UserID(notif.UserID.String()),
			logger.Error(err),
			logger.Component("notifications"),
		)
	}
	return nil
}

// List returns a user's notifications, newest first.
func (m *Manager) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	return m.storage.List(ctx, userID, opts)
}

// MarkRead marks the given notifications as read.
func (m *Manager) MarkRead(ctx context.Context, userID uuid.UUID, notifIDs ...uuid.UUID) error {
	return m.storage.MarkRead(ctx, userID, notifIDs...)
}

// MarkAllRead marks every unread notification of the user as read.
func (m *Manager) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return m.storage.MarkAllRead(ctx, userID)
}

// CountUnread returns the user's unread notification count.
func (m *Manager) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.storage.CountUnread(ctx, userID)
}
