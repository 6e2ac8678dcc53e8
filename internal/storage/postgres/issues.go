package postgres

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusfix/campusfix/internal/issues"
	"github.com/campusfix/campusfix/pkg/pg"
)

const issueColumns = `id, title, description, category, status, priority, location, visibility,
	reporter_id, admin_notes, resolution_summary, resolution_details, estimated_completion,
	actual_completion, work_hours, resolution_cost, progress_percentage, progress_status,
	progress_notes, progress_updated_at, upvote_count, created_at, updated_at, resolved_at`

func scanIssue(row interface{ Scan(dest ...any) error }) (*issues.Issue, error) {
	var i issues.Issue
	err := row.Scan(
		&i.ID, &i.Title, &i.Description, &i.Category, &i.Status, &i.Priority, &i.Location,
		&i.Visibility, &i.ReporterID, &i.AdminNotes, &i.ResolutionSummary, &i.ResolutionDetails,
		&i.EstimatedCompletion, &i.ActualCompletion, &i.WorkHours, &i.ResolutionCost,
		&i.ProgressPercentage, &i.ProgressStatus, &i.ProgressNotes, &i.ProgressUpdatedAt,
		&i.UpvoteCount, &i.CreatedAt, &i.UpdatedAt, &i.ResolvedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, issues.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}
	return &i, nil
}

func (r *Repository) CreateIssue(ctx context.Context, issue *issues.Issue) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO issues (id, title, description, category, status, priority, location,
			visibility, reporter_id, admin_notes, resolution_summary, resolution_details,
			estimated_completion, actual_completion, work_hours, resolution_cost,
			progress_percentage, progress_status, progress_notes, progress_updated_at,
			upvote_count, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24)`,
		issue.ID, issue.Title, issue.Description, issue.Category, issue.Status, issue.Priority,
		issue.Location, issue.Visibility, issue.ReporterID, issue.AdminNotes,
		issue.ResolutionSummary, issue.ResolutionDetails, issue.EstimatedCompletion,
		issue.ActualCompletion, issue.WorkHours, issue.ResolutionCost, issue.ProgressPercentage,
		issue.ProgressStatus, issue.ProgressNotes, issue.ProgressUpdatedAt, issue.UpvoteCount,
		issue.CreatedAt, issue.UpdatedAt, issue.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

func (r *Repository) GetIssue(ctx context.Context, id uuid.UUID) (*issues.Issue, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1`, id)
	return scanIssue(row)
}

func (r *Repository) ListIssues(ctx context.Context, filter issues.Filter) ([]issues.Issue, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Priority != "" {
		conds = append(conds, "priority = "+arg(filter.Priority))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.ReporterID != nil {
		conds = append(conds, "reporter_id = "+arg(*filter.ReporterID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR location ILIKE %s)", p, p, p))
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var out []issues.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateIssue(ctx context.Context, issue *issues.Issue) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE issues
		SET title = $2, description = $3, category = $4, status = $5, priority = $6,
			location = $7, visibility = $8, admin_notes = $9, resolution_summary = $10,
			resolution_details = $11, estimated_completion = $12, actual_completion = $13,
			work_hours = $14, resolution_cost = $15, progress_percentage = $16,
			progress_status = $17, progress_notes = $18, progress_updated_at = $19,
			updated_at = $20, resolved_at = $21
		WHERE id = $1`,
		issue.ID, issue.Title, issue.Description, issue.Category, issue.Status, issue.Priority,
		issue.Location, issue.Visibility, issue.AdminNotes, issue.ResolutionSummary,
		issue.ResolutionDetails, issue.EstimatedCompletion, issue.ActualCompletion,
		issue.WorkHours, issue.ResolutionCost, issue.ProgressPercentage, issue.ProgressStatus,
		issue.ProgressNotes, issue.ProgressUpdatedAt, issue.UpdatedAt, issue.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return issues.ErrIssueNotFound
	}
	return nil
}

func (r *Repository) DeleteIssue(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return issues.ErrIssueNotFound
	}
	return nil
}

func (r *Repository) AddComment(ctx context.Context, comment *issues.Comment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO comments (id, issue_id, user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.IssueID, comment.UserID, comment.Content, comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *Repository) ListComments(ctx context.Context, issueID uuid.UUID) ([]issues.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, issue_id, user_id, content, created_at, updated_at
		FROM comments WHERE issue_id = $1 ORDER BY created_at ASC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []issues.Comment
	for rows.Next() {
		var c issues.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ToggleUpvote inserts or removes the vote and adjusts the
// denormalized count in one transaction.
func (r *Repository) ToggleUpvote(ctx context.Context, issueID, userID uuid.UUID) (bool, int, error) {
	var (
		upvoted bool
		count   int
	)
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM upvotes WHERE issue_id = $1 AND user_id = $2`,
			issueID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove upvote: %w", err)
		}

		delta := -1
		if tag.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO upvotes (issue_id, user_id, created_at) VALUES ($1, $2, now())`,
				issueID, userID,
			); err != nil {
				return fmt.Errorf("failed to insert upvote: %w", err)
			}
			upvoted = true
			delta = 1
		}

		err = tx.QueryRow(ctx, `
			UPDATE issues SET upvote_count = greatest(0, upvote_count + $2), updated_at = now()
			WHERE id = $1 RETURNING upvote_count`,
			issueID, delta,
		).Scan(&count)
		if err != nil {
			if pg.IsNotFoundError(err) {
				return issues.ErrIssueNotFound
			}
			return fmt.Errorf("failed to adjust upvote count: %w", err)
		}
		return nil
	})
	return upvoted, count, err
}

func (r *Repository) HasUpvoted(ctx context.Context, issueID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM upvotes WHERE issue_id = $1 AND user_id = $2)`,
		issueID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check upvote: %w", err)
	}
	return exists, nil
}

func (r *Repository) AddAttachment(ctx context.Context, att *issues.Attachment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attachments (id, issue_id, uploaded_by, filename, path, url, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		att.ID, att.IssueID, att.UploadedBy, att.Filename, att.Path, att.URL, att.Size,
		att.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (r *Repository) ListAttachments(ctx context.Context, issueID uuid.UUID) ([]issues.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, issue_id, uploaded_by, filename, path, url, size, uploaded_at
		FROM attachments WHERE issue_id = $1 ORDER BY uploaded_at ASC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var out []issues.Attachment
	for rows.Next() {
		var a issues.Attachment
		if err := rows.Scan(&a.ID, &a.IssueID, &a.UploadedBy, &a.Filename, &a.Path, &a.URL, &a.Size, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) AddWorkLog(ctx context.Context, wl *issues.WorkLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO work_logs (id, issue_id, admin_id, work_type, description, hours_spent,
			materials_used, outcome, next_steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		wl.ID, wl.IssueID, wl.AdminID, wl.WorkType, wl.Description, wl.HoursSpent,
		wl.MaterialsUsed, wl.Outcome, wl.NextSteps, wl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert work log: %w", err)
	}
	return nil
}

func (r *Repository) ListWorkLogs(ctx context.Context, issueID uuid.UUID) ([]issues.WorkLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, issue_id, admin_id, work_type, description, hours_spent, materials_used,
			outcome, next_steps, created_at
		FROM work_logs WHERE issue_id = $1 ORDER BY created_at DESC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list work logs: %w", err)
	}
	defer rows.Close()

	var out []issues.WorkLog
	for rows.Next() {
		var wl issues.WorkLog
		if err := rows.Scan(&wl.ID, &wl.IssueID, &wl.AdminID, &wl.WorkType, &wl.Description,
			&wl.HoursSpent, &wl.MaterialsUsed, &wl.Outcome, &wl.NextSteps, &wl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan work log: %w", err)
		}
		out = append(out, wl)
	}
	return out, rows.Err()
}

func (r *Repository) AddProgressUpdate(ctx context.Context, pu *issues.ProgressUpdate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO progress_updates (id, issue_id, admin_id, update_type, progress_percentage,
			title, description, next_steps, estimated_completion, is_major_update, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		pu.ID, pu.IssueID, pu.AdminID, pu.UpdateType, pu.ProgressPercentage, pu.Title,
		pu.Description, pu.NextSteps, pu.EstimatedCompletion, pu.IsMajorUpdate, pu.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert progress update: %w", err)
	}
	return nil
}

func (r *Repository) ListProgressUpdates(ctx context.Context, issueID uuid.UUID) ([]issues.ProgressUpdate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, issue_id, admin_id, update_type, progress_percentage, title, description,
			next_steps, estimated_completion, is_major_update, created_at
		FROM progress_updates WHERE issue_id = $1 ORDER BY created_at DESC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress updates: %w", err)
	}
	defer rows.Close()

	var out []issues.ProgressUpdate
	for rows.Next() {
		var pu issues.ProgressUpdate
		if err := rows.Scan(&pu.ID, &pu.IssueID, &pu.AdminID, &pu.UpdateType,
			&pu.ProgressPercentage, &pu.Title, &pu.Description, &pu.NextSteps,
			&pu.EstimatedCompletion, &pu.IsMajorUpdate, &pu.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress update: %w", err)
		}
		out = append(out, pu)
	}
	return out, rows.Err()
}

func (r *Repository) AddEvidence(ctx context.Context, ev *issues.Evidence) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resolution_evidence (id, issue_id, admin_id, filename, path, url, file_type,
			description, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID, ev.IssueID, ev.AdminID, ev.Filename, ev.Path, ev.URL, ev.FileType,
		ev.Description, ev.Size, ev.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}
	return nil
}

func (r *Repository) ListEvidence(ctx context.Context, issueID uuid.UUID) ([]issues.Evidence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, issue_id, admin_id, filename, path, url, file_type, description, size, uploaded_at
		FROM resolution_evidence WHERE issue_id = $1 ORDER BY uploaded_at DESC`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var out []issues.Evidence
	for rows.Next() {
		var ev issues.Evidence
		if err := rows.Scan(&ev.ID, &ev.IssueID, &ev.AdminID, &ev.Filename, &ev.Path, &ev.URL,
			&ev.FileType, &ev.Description, &ev.Size, &ev.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *Repository) UserStats(ctx context.Context, userID uuid.UUID) (*issues.Stats, error) {
	var s issues.Stats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'open'),
			count(*) FILTER (WHERE status = 'in-progress'),
			count(*) FILTER (WHERE status = 'resolved'),
			count(*) FILTER (WHERE status = 'closed'),
			coalesce(avg(extract(epoch FROM resolved_at - created_at) / 3600)
				FILTER (WHERE resolved_at IS NOT NULL), 0)
		FROM issues WHERE reporter_id = $1`,
		userID,
	).Scan(&s.TotalIssues, &s.OpenIssues, &s.InProgressIssues, &s.ResolvedIssues,
		&s.ClosedIssues, &s.AvgResolutionHours)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}

	if s.TotalIssues > 0 {
		s.ResolutionRate = round1(float64(s.ResolvedIssues+s.ClosedIssues) / float64(s.TotalIssues) * 100)
	}
	s.AvgResolutionHours = round1(s.AvgResolutionHours)
	return &s, nil
}

func (r *Repository) GlobalStats(ctx context.Context) (*issues.AdminStats, error) {
	var s issues.AdminStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'open'),
			count(*) FILTER (WHERE status = 'in-progress'),
			count(*) FILTER (WHERE status = 'resolved'),
			count(*) FILTER (WHERE status = 'closed')
		FROM issues`,
	).Scan(&s.TotalIssues, &s.OpenIssues, &s.InProgressIssues, &s.ResolvedIssues, &s.ClosedIssues)
	if err != nil {
		return nil, fmt.Errorf("failed to compute global stats: %w", err)
	}
	if s.TotalIssues > 0 {
		s.ResolutionRate = round1(float64(s.ResolvedIssues+s.ClosedIssues) / float64(s.TotalIssues) * 100)
	}

	byCategory, err := r.countBy(ctx, "category")
	if err != nil {
		return nil, err
	}
	byPriority, err := r.countBy(ctx, "priority")
	if err != nil {
		return nil, err
	}
	s.ByCategory = byCategory
	s.ByPriority = byPriority
	return &s, nil
}

// countBy groups issues by a fixed column name. Only called with
// constant identifiers, never user input.
func (r *Repository) countBy(ctx context.Context, column string) ([]issues.CountByLabel, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, count(*) FROM issues GROUP BY %s ORDER BY count(*) DESC`, column, column),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to group issues by %s: %w", column, err)
	}
	defer rows.Close()

	var out []issues.CountByLabel
	for rows.Next() {
		var c issues.CountByLabel
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s bucket: %w", column, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
