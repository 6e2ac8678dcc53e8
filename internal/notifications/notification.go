package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened to trigger the notification.
type Type string

const (
	TypeIssueStatusChanged Type = "issue_status_changed"
	TypeIssueResolved      Type = "issue_resolved"
	TypeIssueAssigned      Type = "issue_assigned"
	TypeCommentAdded       Type = "comment_added"
	TypeProgressUpdate     Type = "progress_update"
	TypeIssueUpvoted       Type = "issue_upvoted"
)

// Notification is a single in-app notification for a user. IssueID is
// set when the notification relates to a reported issue.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	IssueID   *uuid.UUID `json:"issue_id,omitempty"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MarkAsRead marks the notification as read with the current timestamp.
func (n *Notification) MarkAsRead() {
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}
