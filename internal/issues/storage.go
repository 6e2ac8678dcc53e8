package issues

import (
	"context"

	"github.com/google/uuid"
)

// Storage defines the persistence operations for issues and their
// related records. Implementations must return ErrIssueNotFound when
// no issue matches.
type Storage interface {
	CreateIssue(ctx context.Context, issue *Issue) error
	GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error)
	ListIssues(ctx context.Context, filter Filter) ([]Issue, error)
	UpdateIssue(ctx context.Context, issue *Issue) error
	DeleteIssue(ctx context.Context, id uuid.UUID) error

	AddComment(ctx context.Context, comment *Comment) error
	ListComments(ctx context.Context, issueID uuid.UUID) ([]Comment, error)

	// ToggleUpvote inserts or removes the user's upvote and adjusts the
	// denormalized count in the same transaction. It reports whether
	// the issue is upvoted after the call and the new count.
	ToggleUpvote(ctx context.Context, issueID, userID uuid.UUID) (bool, int, error)
	HasUpvoted(ctx context.Context, issueID, userID uuid.UUID) (bool, error)

	AddAttachment(ctx context.Context, att *Attachment) error
	ListAttachments(ctx context.Context, issueID uuid.UUID) ([]Attachment, error)

	AddWorkLog(ctx context.Context, wl *WorkLog) error
	ListWorkLogs(ctx context.Context, issueID uuid.UUID) ([]WorkLog, error)

	AddProgressUpdate(ctx context.Context, pu *ProgressUpdate) error
	ListProgressUpdates(ctx context.Context, issueID uuid.UUID) ([]ProgressUpdate, error)

	AddEvidence(ctx context.Context, ev *Evidence) error
	ListEvidence(ctx context.Context, issueID uuid.UUID) ([]Evidence, error)

	UserStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	GlobalStats(ctx context.Context) (*AdminStats, error)
}
