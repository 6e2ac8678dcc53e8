package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusfix/campusfix/internal/notifications"
)

func (r *Repository) Create(ctx context.Context, notif notifications.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, issue_id, type, title, message, read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		notif.ID, notif.UserID, notif.IssueID, notif.Type, notif.Title, notif.Message,
		notif.Read, notif.ReadAt, notif.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, opts notifications.ListOptions) ([]notifications.Notification, error) {
	query := `
		SELECT id, user_id, issue_id, type, title, message, read, read_at, created_at
		FROM notifications WHERE user_id = $1`
	args := []any{userID}
	if opts.OnlyUnread {
		query += " AND read = false"
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []notifications.Notification
	for rows.Next() {
		var n notifications.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.IssueID, &n.Type, &n.Title, &n.Message,
			&n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, userID uuid.UUID, notifIDs ...uuid.UUID) error {
	if len(notifIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(notifIDs))
	args := []any{userID}
	for i, id := range notifIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE notifications SET read = true, read_at = now()
		WHERE user_id = $1 AND read = false AND id IN (%s)`,
		strings.Join(placeholders, ", ")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = true, read_at = now()
		WHERE user_id = $1 AND read = false`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
