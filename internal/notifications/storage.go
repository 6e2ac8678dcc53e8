package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ListOptions provides filtering and pagination for listing.
type ListOptions struct {
	Limit      int
	Offset     int
	OnlyUnread bool
}

// Storage handles notification persistence and retrieval.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// List returns a user's notifications, newest first.
	List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error)

	// MarkRead marks the given notifications as read. Unknown IDs are
	// ignored.
	MarkRead(ctx context.Context, userID uuid.UUID, notifIDs ...uuid.UUID) error

	// MarkAllRead marks every unread notification of the user as read.
	MarkAllRead(ctx context.Context, userID uuid.UUID) error

	// CountUnread returns the unread count for a user.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
