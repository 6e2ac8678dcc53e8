package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSend(t *testing.T) {
	t.Parallel()

	t.Run("assigns id and creation time", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		mgr := NewManager(storage, nil)

		userID := uuid.New()
		err := mgr.Send(context.Background(), Notification{
			UserID:  userID,
			Type:    TypeIssueStatusChanged,
			Title:   "Issue status updated",
			Message: "Your issue is now in progress",
		})
		require.NoError(t, err)

		list, err := storage.List(context.Background(), userID, ListOptions{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.NotEqual(t, uuid.Nil, list[0].ID)
		assert.False(t, list[0].CreatedAt.IsZero())
	})

	t.Run("delivery failure keeps the notification", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		mgr := NewManager(storage, DelivererFunc(func(ctx context.Context, notif Notification) error {
			return errors.New("smtp down")
		}))

		userID := uuid.New()
		err := mgr.Send(context.Background(), Notification{UserID: userID, Type: TypeCommentAdded})
		require.NoError(t, err)

		count, err := storage.CountUnread(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	t.Run("lists newest first with pagination", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		userID := uuid.New()
		base := time.Now()
		for i := 0; i < 5; i++ {
			require.NoError(t, storage.Create(context.Background(), Notification{
				ID:        uuid.New(),
				UserID:    userID,
				Type:      TypeProgressUpdate,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		list, err := storage.List(context.Background(), userID, ListOptions{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
	})

	t.Run("mark read and unread count", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		userID := uuid.New()
		first := uuid.New()
		require.NoError(t, storage.Create(context.Background(), Notification{ID: first, UserID: userID}))
		require.NoError(t, storage.Create(context.Background(), Notification{ID: uuid.New(), UserID: userID}))

		require.NoError(t, storage.MarkRead(context.Background(), userID, first))

		count, err := storage.CountUnread(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, storage.MarkAllRead(context.Background(), userID))
		count, err = storage.CountUnread(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("only unread filter", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		userID := uuid.New()
		read := uuid.New()
		require.NoError(t, storage.Create(context.Background(), Notification{ID: read, UserID: userID}))
		require.NoError(t, storage.Create(context.Background(), Notification{ID: uuid.New(), UserID: userID}))
		require.NoError(t, storage.MarkRead(context.Background(), userID, read))

		list, err := storage.List(context.Background(), userID, ListOptions{OnlyUnread: true})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
