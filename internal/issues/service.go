package issues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/notifications"
	"github.com/campusfix/campusfix/pkg/filestore"
	"github.com/campusfix/campusfix/pkg/logger"
)

// Notifier fans out in-app notifications. Satisfied by
// notifications.Manager.
type Notifier interface {
	Send(ctx context.Context, notif notifications.Notification) error
}

// Directory lists staff accounts for notification fan-out.
type Directory interface {
	ListAdmins(ctx context.Context) ([]accounts.User, error)
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Admin bool
}

// ActorFromUser builds an Actor from an account.
func ActorFromUser(u *accounts.User) Actor {
	return Actor{ID: u.ID, Name: u.FullName(), Admin: u.IsAdmin()}
}

// Service manages issue reports, their discussion and admin work
// tracking.
type Service struct {
	storage  Storage
	notifier Notifier
	dir      Directory
	indexer  Indexer
	files    filestore.Storage
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithIndexer enables full-text search indexing.
func WithIndexer(idx Indexer) Option {
	return func(s *Service) { s.indexer = idx }
}

// WithFileStorage enables attachment and evidence uploads.
func WithFileStorage(files filestore.Storage) Option {
	return func(s *Service) { s.files = files }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an issue service. notifier and dir may come from
// the notifications manager and the accounts storage respectively.
func NewService(storage Storage, notifier Notifier, dir Directory, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		notifier: notifier,
		dir:      dir,
		indexer:  NoopIndexer{},
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create reports a new issue. Status always starts open; priority and
// visibility fall back to medium and public.
func (s *Service) Create(ctx context.Context, reporter Actor, params CreateParams) (*Issue, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrInvalidTitle
	}
	if !validCategories[params.Category] {
		return nil, ErrInvalidCategory
	}
	if params.Priority == "" {
		params.Priority = PriorityMedium
	}
	if !validPriorities[params.Priority] {
		return nil, ErrInvalidPriority
	}
	if params.Visibility == "" {
		params.Visibility = VisibilityPublic
	}
	if !validVisibilities[params.Visibility] {
		return nil, ErrInvalidVisibility
	}

	now := s.now()
	issue := &Issue{
		ID:                uuid.New(),
		Title:             strings.TrimSpace(params.Title),
		Description:       params.Description,
		Category:          params.Category,
		Status:            StatusOpen,
		Priority:          params.Priority,
		Location:          params.Location,
		Visibility:        params.Visibility,
		ReporterID:        reporter.ID,
		ProgressStatus:    "not_started",
		ProgressUpdatedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.storage.CreateIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	s.index(ctx, issue)
	s.log.InfoContext(ctx, "issue reported",
		logger.IssueID(issue.ID.String()),
		logger.UserID(reporter.ID.String()),
		slog.String("category", issue.Category),
		logger.Component("issues"),
	)
	return issue, nil
}

// Get loads an issue. Private issues are only visible to their
// reporter and staff.
func (s *Service) Get(ctx context.Context, viewer Actor, id uuid.UUID) (*Issue, error) {
	issue, err := s.storage.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Visibility == VisibilityPrivate && issue.ReporterID != viewer.ID && !viewer.Admin {
		return nil, ErrIssueNotFound
	}
	return issue, nil
}

// List returns issues matching the filter. Non-staff viewers only see
// public issues and their own.
func (s *Service) List(ctx context.Context, viewer Actor, filter Filter) ([]Issue, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, ErrInvalidStatus
	}
	if filter.Priority != "" && !validPriorities[filter.Priority] {
		return nil, ErrInvalidPriority
	}
	if filter.Category != "" && !validCategories[filter.Category] {
		return nil, ErrInvalidCategory
	}

	list, err := s.storage.ListIssues(ctx, filter)
	if err != nil {
		return nil, err
	}
	if viewer.Admin {
		return list, nil
	}
	visible := make([]Issue, 0, len(list))
	for _, issue := range list {
		if issue.Visibility == VisibilityPublic || issue.ReporterID == viewer.ID {
			visible = append(visible, issue)
		}
	}
	return visible, nil
}

// Update applies changes to an issue. Reporters may edit their own
// issues; admin work fields require staff role. A status change
// notifies the reporter and all staff except the actor, and sets
// ResolvedAt the first time an issue becomes resolved.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, params UpdateParams) (*Issue, error) {
	issue, err := s.storage.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.ReporterID != actor.ID && !actor.Admin {
		return nil, ErrForbidden
	}
	if hasAdminFields(params) && !actor.Admin {
		return nil, ErrForbidden
	}

	oldStatus := issue.Status
	if err := applyUpdate(issue, params); err != nil {
		return nil, err
	}
	issue.UpdatedAt = s.now()

	if issue.Status == StatusResolved && oldStatus != StatusResolved && issue.ResolvedAt == nil {
		now := s.now()
		issue.ResolvedAt = &now
	}

	if err := s.storage.UpdateIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}
	s.index(ctx, issue)

	if issue.Status != oldStatus {
		s.notifyStatusChange(ctx, actor, issue, oldStatus)
	}
	return issue, nil
}

// Delete removes an issue. Only the reporter or staff may delete.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	issue, err := s.storage.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	if issue.ReporterID != actor.ID && !actor.Admin {
		return ErrForbidden
	}
	if err := s.storage.DeleteIssue(ctx, id); err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	s.unindex(ctx, id)
	return nil
}

// ToggleUpvote adds or removes the actor's upvote. Adding an upvote
// notifies the reporter.
func (s *Service) ToggleUpvote(ctx context.Context, actor Actor, issueID uuid.UUID) (bool, int, error) {
	issue, err := s.storage.GetIssue(ctx, issueID)
	if err != nil {
		return false, 0, err
	}

	upvoted, count, err := s.storage.ToggleUpvote(ctx, issueID, actor.ID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle upvote: %w", err)
	}

	if upvoted && issue.ReporterID != actor.ID {
		s.send(ctx, notifications.Notification{
			UserID:  issue.ReporterID,
			IssueID: &issue.ID,
			Type:    notifications.TypeIssueUpvoted,
			Title:   "New Upvote",
			Message: fmt.Sprintf("%s upvoted your issue: %s", actor.Name, issue.Title),
		})
	}
	return upvoted, count, nil
}

// AddComment posts a comment and notifies the reporter and staff.
func (s *Service) AddComment(ctx context.Context, actor Actor, issueID uuid.UUID, content string) (*Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("comment content is required")
	}
	issue, err := s.storage.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	comment := &Comment{
		ID:        uuid.New(),
		IssueID:   issueID,
		UserID:    actor.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	for _, recipient := range s.recipients(ctx, actor, issue) {
		message := fmt.Sprintf("New comment from %s on issue: %s", actor.Name, issue.Title)
		if recipient == issue.ReporterID {
			message = fmt.Sprintf("%s commented on your issue: %s", actor.Name, issue.Title)
		}
		s.send(ctx, notifications.Notification{
			UserID:  recipient,
			IssueID: &issue.ID,
			Type:    notifications.TypeCommentAdded,
			Title:   "New Comment",
			Message: message,
		})
	}
	return comment, nil
}

// ListComments returns an issue's comments in chronological order.
func (s *Service) ListComments(ctx context.Context, issueID uuid.UUID) ([]Comment, error) {
	return s.storage.ListComments(ctx, issueID)
}

// AddAttachment stores an uploaded file against the issue.
func (s *Service) AddAttachment(ctx context.Context, actor Actor, issueID uuid.UUID, filename, contentType string, r io.Reader) (*Attachment, error) {
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}
	if _, err := s.storage.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}

	now := s.now()
	path := filepath.ToSlash(filepath.Join(
		"issue_attachments", now.Format("2006/01/02"), issueID.String(), filestore.SanitizeFilename(filename),
	))
	file, err := s.files.Save(ctx, path, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	att := &Attachment{
		ID:         uuid.New(),
		IssueID:    issueID,
		UploadedBy: actor.ID,
		Filename:   filename,
		Path:       file.Path,
		URL:        file.URL,
		Size:       file.Size,
		UploadedAt: now,
	}
	if err := s.storage.AddAttachment(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}
	return att, nil
}

// ListAttachments returns an issue's attachments.
func (s *Service) ListAttachments(ctx context.Context, issueID uuid.UUID) ([]Attachment, error) {
	return s.storage.ListAttachments(ctx, issueID)
}

// WorkLogParams carries the fields of a staff work log entry.
type WorkLogParams struct {
	WorkType      string
	Description   string
	HoursSpent    float64
	MaterialsUsed string
	Outcome       string
	NextSteps     string
}

// AddWorkLog records staff work on an issue. Staff only.
func (s *Service) AddWorkLog(ctx context.Context, actor Actor, issueID uuid.UUID, params WorkLogParams) (*WorkLog, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	if !validWorkTypes[params.WorkType] {
		return nil, ErrInvalidWorkType
	}
	if _, err := s.storage.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}

	wl := &WorkLog{
		ID:            uuid.New(),
		IssueID:       issueID,
		AdminID:       actor.ID,
		WorkType:      params.WorkType,
		Description:   params.Description,
		HoursSpent:    params.HoursSpent,
		MaterialsUsed: params.MaterialsUsed,
		Outcome:       params.Outcome,
		NextSteps:     params.NextSteps,
		CreatedAt:     s.now(),
	}
	if err := s.storage.AddWorkLog(ctx, wl); err != nil {
		return nil, fmt.Errorf("failed to add work log: %w", err)
	}
	return wl, nil
}

// ListWorkLogs returns an issue's work logs, newest first. Staff only.
func (s *Service) ListWorkLogs(ctx context.Context, actor Actor, issueID uuid.UUID) ([]WorkLog, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	return s.storage.ListWorkLogs(ctx, issueID)
}

// ProgressParams carries the fields of a staff progress update.
type ProgressParams struct {
	UpdateType          string
	ProgressPercentage  int
	Title               string
	Description         string
	NextSteps           string
	EstimatedCompletion *time.Time
	IsMajorUpdate       bool
}

// AddProgressUpdate records a progress update, mirrors it onto the
// issue's progress fields and notifies the reporter. Staff only.
func (s *Service) AddProgressUpdate(ctx context.Context, actor Actor, issueID uuid.UUID, params ProgressParams) (*ProgressUpdate, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	if !validUpdateTypes[params.UpdateType] {
		return nil, ErrInvalidUpdateType
	}
	if params.ProgressPercentage < 0 || params.ProgressPercentage > 100 {
		return nil, ErrInvalidProgress
	}
	issue, err := s.storage.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pu := &ProgressUpdate{
		ID:                  uuid.New(),
		IssueID:             issueID,
		AdminID:             actor.ID,
		UpdateType:          params.UpdateType,
		ProgressPercentage:  params.ProgressPercentage,
		Title:               params.Title,
		Description:         params.Description,
		NextSteps:           params.NextSteps,
		EstimatedCompletion: params.EstimatedCompletion,
		IsMajorUpdate:       params.IsMajorUpdate,
		CreatedAt:           now,
	}
	if err := s.storage.AddProgressUpdate(ctx, pu); err != nil {
		return nil, fmt.Errorf("failed to add progress update: %w", err)
	}

	issue.ProgressPercentage = params.ProgressPercentage
	issue.ProgressStatus = params.UpdateType
	issue.ProgressNotes = params.Description
	issue.ProgressUpdatedAt = now
	issue.UpdatedAt = now
	if params.EstimatedCompletion != nil {
		issue.EstimatedCompletion = params.EstimatedCompletion
	}
	if err := s.storage.UpdateIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to update issue progress: %w", err)
	}

	if issue.ReporterID != actor.ID {
		s.send(ctx, notifications.Notification{
			UserID:  issue.ReporterID,
			IssueID: &issue.ID,
			Type:    notifications.TypeProgressUpdate,
			Title:   "Progress Update",
			Message: fmt.Sprintf("%s (%d%%): %s", issue.Title, params.ProgressPercentage, params.Title),
		})
	}
	return pu, nil
}

// ListProgressUpdates returns an issue's progress updates, newest
// first.
func (s *Service) ListProgressUpdates(ctx context.Context, issueID uuid.UUID) ([]ProgressUpdate, error) {
	return s.storage.ListProgressUpdates(ctx, issueID)
}

// AddEvidence stores a resolution evidence file. Staff only.
func (s *Service) AddEvidence(ctx context.Context, actor Actor, issueID uuid.UUID, filename, contentType, fileType, description string, r io.Reader) (*Evidence, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}
	if _, err := s.storage.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	if fileType == "" {
		fileType = EvidenceOther
	}

	now := s.now()
	path := filepath.ToSlash(filepath.Join(
		"resolution_evidence", now.Format("2006/01/02"), issueID.String(), filestore.SanitizeFilename(filename),
	))
	file, err := s.files.Save(ctx, path, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store evidence: %w", err)
	}

	ev := &Evidence{
		ID:          uuid.New(),
		IssueID:     issueID,
		AdminID:     actor.ID,
		Filename:    filename,
		Path:        file.Path,
		URL:         file.URL,
		FileType:    fileType,
		Description: description,
		Size:        file.Size,
		UploadedAt:  now,
	}
	if err := s.storage.AddEvidence(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to record evidence: %w", err)
	}
	return ev, nil
}

// ListEvidence returns an issue's resolution evidence files.
func (s *Service) ListEvidence(ctx context.Context, issueID uuid.UUID) ([]Evidence, error) {
	return s.storage.ListEvidence(ctx, issueID)
}

// Search finds issues matching a free-text query. The search index is
// consulted first; when it is disabled or empty the database fallback
// matches on title, description and location.
func (s *Service) Search(ctx context.Context, viewer Actor, query string, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = 20
	}

	ids, err := s.indexer.SearchIssues(ctx, query, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "search index query failed, falling back to database",
			logger.Error(err),
			logger.Component("issues"),
		)
		ids = nil
	}
	if len(ids) == 0 {
		return s.List(ctx, viewer, Filter{Search: query, Limit: limit})
	}

	out := make([]Issue, 0, len(ids))
	for _, id := range ids {
		issue, err := s.Get(ctx, viewer, id)
		if err != nil {
			// Index can lag behind deletes.
			continue
		}
		out = append(out, *issue)
	}
	return out, nil
}

// UserStats returns the dashboard summary for a user's own issues.
func (s *Service) UserStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	return s.storage.UserStats(ctx, userID)
}

// AdminStats returns campus-wide statistics. Staff only.
func (s *Service) AdminStats(ctx context.Context, actor Actor) (*AdminStats, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	return s.storage.GlobalStats(ctx)
}

// RecentIssues returns the user's most recently reported issues.
func (s *Service) RecentIssues(ctx context.Context, userID uuid.UUID, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.storage.ListIssues(ctx, Filter{ReporterID: &userID, Limit: limit})
}

func hasAdminFields(params UpdateParams) bool {
	return params.AdminNotes != nil ||
		params.ResolutionSummary != nil ||
		params.ResolutionDetails != nil ||
		params.EstimatedCompletion != nil ||
		params.ActualCompletion != nil ||
		params.WorkHours != nil ||
		params.ResolutionCost != nil
}

func applyUpdate(issue *Issue, params UpdateParams) error {
	if params.Title != nil {
		if strings.TrimSpace(*params.Title) == "" {
			return ErrInvalidTitle
		}
		issue.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		issue.Description = *params.Description
	}
	if params.Category != nil {
		if !validCategories[*params.Category] {
			return ErrInvalidCategory
		}
		issue.Category = *params.Category
	}
	if params.Priority != nil {
		if !validPriorities[*params.Priority] {
			return ErrInvalidPriority
		}
		issue.Priority = *params.Priority
	}
	if params.Location != nil {
		issue.Location = *params.Location
	}
	if params.Visibility != nil {
		if !validVisibilities[*params.Visibility] {
			return ErrInvalidVisibility
		}
		issue.Visibility = *params.Visibility
	}
	if params.Status != nil {
		if !validStatuses[*params.Status] {
			return ErrInvalidStatus
		}
		issue.Status = *params.Status
	}
	if params.AdminNotes != nil {
		issue.AdminNotes = *params.AdminNotes
	}
	if params.ResolutionSummary != nil {
		issue.ResolutionSummary = *params.ResolutionSummary
	}
	if params.ResolutionDetails != nil {
		issue.ResolutionDetails = *params.ResolutionDetails
	}
	if params.EstimatedCompletion != nil {
		issue.EstimatedCompletion = params.EstimatedCompletion
	}
	if params.ActualCompletion != nil {
		issue.ActualCompletion = params.ActualCompletion
	}
	if params.WorkHours != nil {
		issue.WorkHours = params.WorkHours
	}
	if params.ResolutionCost != nil {
		issue.ResolutionCost = params.ResolutionCost
	}
	return nil
}

// recipients collects the reporter and all staff, excluding the actor.
func (s *Service) recipients(ctx context.Context, actor Actor, issue *Issue) []uuid.UUID {
	seen := map[uuid.UUID]bool{actor.ID: true}
	var out []uuid.UUID

	if !seen[issue.ReporterID] {
		seen[issue.ReporterID] = true
		out = append(out, issue.ReporterID)
	}

	admins, err := s.dir.ListAdmins(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list staff for notification",
			logger.Error(err),
			logger.Component("issues"),
		)
		return out
	}
	for _, admin := range admins {
		if !seen[admin.ID] {
			seen[admin.ID] = true
			out = append(out, admin.ID)
		}
	}
	return out
}

func (s *Service) notifyStatusChange(ctx context.Context, actor Actor, issue *Issue, oldStatus string) {
	notifType := notifications.TypeIssueStatusChanged
	if issue.Status == StatusResolved {
		notifType = notifications.TypeIssueResolved
	}

	for _, recipient := range s.recipients(ctx, actor, issue) {
		message := fmt.Sprintf("%s changed issue %q status to %s", actor.Name, issue.Title, issue.Status)
		if recipient == issue.ReporterID {
			message = fmt.Sprintf("Your issue %q status was changed to %s by %s", issue.Title, issue.Status, actor.Name)
		}
		s.send(ctx, notifications.Notification{
			UserID:  recipient,
			IssueID: &issue.ID,
			Type:    notifType,
			Title:   "Issue Status Updated",
			Message: message,
		})
	}
}

func (s *Service) send(ctx context.Context, notif notifications.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notif); err != nil {
		s.log.ErrorContext(ctx, "failed to send notification",
			logger.UserID(notif.UserID.String()),
			logger.Error(err),
			logger.Component("issues"),
		)
	}
}

func (s *Service) index(ctx context.Context, issue *Issue) {
	if err := s.indexer.IndexIssue(ctx, issue); err != nil {
		s.log.ErrorContext(ctx, "failed to index issue",
			logger.IssueID(issue.ID.String()),
			logger.Error(err),
			logger.Component("issues"),
		)
	}
}

func (s *Service) unindex(ctx context.Context, id uuid.UUID) {
	if err := s.indexer.RemoveIssue(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "failed to remove issue from index",
			logger.IssueID(id.String()),
			logger.Error(err),
			logger.Component("issues"),
		)
	}
}
