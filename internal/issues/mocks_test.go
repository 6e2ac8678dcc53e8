package issues

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/notifications"
)

// MockStorage is a mock implementation of Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateIssue(ctx context.Context, issue *Issue) error {
	args := m.Called(ctx, issue)
	return args.Error(0)
}

func (m *MockStorage) GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Issue), args.Error(1)
}

func (m *MockStorage) ListIssues(ctx context.Context, filter Filter) ([]Issue, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Issue), args.Error(1)
}

func (m *MockStorage) UpdateIssue(ctx context.Context, issue *Issue) error {
	args := m.Called(ctx, issue)
	return args.Error(0)
}

func (m *MockStorage) DeleteIssue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) AddComment(ctx context.Context, comment *Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockStorage) ListComments(ctx context.Context, issueID uuid.UUID) ([]Comment, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Comment), args.Error(1)
}

func (m *MockStorage) ToggleUpvote(ctx context.Context, issueID, userID uuid.UUID) (bool, int, error) {
	args := m.Called(ctx, issueID, userID)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *MockStorage) HasUpvoted(ctx context.Context, issueID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, issueID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AddAttachment(ctx context.Context, att *Attachment) error {
	args := m.Called(ctx, att)
	return args.Error(0)
}

func (m *MockStorage) ListAttachments(ctx context.Context, issueID uuid.UUID) ([]Attachment, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Attachment), args.Error(1)
}

func (m *MockStorage) AddWorkLog(ctx context.Context, wl *WorkLog) error {
	args := m.Called(ctx, wl)
	return args.Error(0)
}

func (m *MockStorage) ListWorkLogs(ctx context.Context, issueID uuid.UUID) ([]WorkLog, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WorkLog), args.Error(1)
}

func (m *MockStorage) AddProgressUpdate(ctx context.Context, pu *ProgressUpdate) error {
	args := m.Called(ctx, pu)
	return args.Error(0)
}

func (m *MockStorage) ListProgressUpdates(ctx context.Context, issueID uuid.UUID) ([]ProgressUpdate, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ProgressUpdate), args.Error(1)
}

func (m *MockStorage) AddEvidence(ctx context.Context, ev *Evidence) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockStorage) ListEvidence(ctx context.Context, issueID uuid.UUID) ([]Evidence, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Evidence), args.Error(1)
}

func (m *MockStorage) UserStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stats), args.Error(1)
}

func (m *MockStorage) GlobalStats(ctx context.Context) (*AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AdminStats), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, notif notifications.Notification) error {
	args := m.Called(ctx, notif)
	return args.Error(0)
}

// MockDirectory is a mock implementation of Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListAdmins(ctx context.Context) ([]accounts.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounts.User), args.Error(1)
}
