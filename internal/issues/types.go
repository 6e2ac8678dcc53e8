package issues

import (
	"time"

	"github.com/google/uuid"
)

// Issue lifecycle statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Priorities in ascending order of urgency.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Categories of campus issues.
const (
	CategoryFacilities  = "facilities"
	CategoryIT          = "it-infrastructure"
	CategoryPlumbing    = "plumbing"
	CategoryElectrical  = "electrical"
	CategoryEquipment   = "equipment"
	CategorySafety      = "safety"
	CategoryMaintenance = "maintenance"
	CategoryOther       = "other"
)

// Visibility controls who can see an issue besides its reporter and
// staff.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Work log entry types.
const (
	WorkTypeAssessment    = "assessment"
	WorkTypeInvestigation = "investigation"
	WorkTypeRepair        = "repair"
	WorkTypeMaintenance   = "maintenance"
	WorkTypeCoordination  = "coordination"
	WorkTypeDocumentation = "documentation"
	WorkTypeFollowUp      = "follow_up"
	WorkTypeOther         = "other"
)

// Progress update types.
const (
	UpdateTypeMilestone  = "milestone"
	UpdateTypeDelay      = "delay"
	UpdateTypeIssue      = "issue"
	UpdateTypeCompletion = "completion"
	UpdateTypeStatus     = "status"
	UpdateTypeResource   = "resource"
	UpdateTypeOtherNote  = "other"
)

// Evidence file types.
const (
	EvidencePhoto    = "photo"
	EvidenceVideo    = "video"
	EvidenceDocument = "document"
	EvidenceReceipt  = "receipt"
	EvidenceReport   = "report"
	EvidenceOther    = "other"
)

var (
	validStatuses     = map[string]bool{StatusOpen: true, StatusInProgress: true, StatusResolved: true, StatusClosed: true}
	validPriorities   = map[string]bool{PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityCritical: true}
	validCategories   = map[string]bool{CategoryFacilities: true, CategoryIT: true, CategoryPlumbing: true, CategoryElectrical: true, CategoryEquipment: true, CategorySafety: true, CategoryMaintenance: true, CategoryOther: true}
	validVisibilities = map[string]bool{VisibilityPublic: true, VisibilityPrivate: true}
	validWorkTypes    = map[string]bool{WorkTypeAssessment: true, WorkTypeInvestigation: true, WorkTypeRepair: true, WorkTypeMaintenance: true, WorkTypeCoordination: true, WorkTypeDocumentation: true, WorkTypeFollowUp: true, WorkTypeOther: true}
	validUpdateTypes  = map[string]bool{UpdateTypeMilestone: true, UpdateTypeDelay: true, UpdateTypeIssue: true, UpdateTypeCompletion: true, UpdateTypeStatus: true, UpdateTypeResource: true, UpdateTypeOtherNote: true}
)

// Issue is a reported campus problem with its admin work and progress
// tracking fields.
type Issue struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Location    string    `json:"location"`
	Visibility  string    `json:"visibility"`
	ReporterID  uuid.UUID `json:"reporter_id"`

	// Admin work fields.
	AdminNotes          string     `json:"admin_notes,omitempty"`
	ResolutionSummary   string     `json:"resolution_summary,omitempty"`
	ResolutionDetails   string     `json:"resolution_details,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	ActualCompletion    *time.Time `json:"actual_completion,omitempty"`
	WorkHours           *float64   `json:"work_hours,omitempty"`
	ResolutionCost      *float64   `json:"resolution_cost,omitempty"`

	// Progress tracking.
	ProgressPercentage int       `json:"progress_percentage"`
	ProgressStatus     string    `json:"progress_status"`
	ProgressNotes      string    `json:"progress_notes,omitempty"`
	ProgressUpdatedAt  time.Time `json:"progress_updated_at"`

	UpvoteCount int        `json:"upvote_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Comment is a discussion entry on an issue.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	IssueID   uuid.UUID `json:"issue_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a file uploaded alongside an issue report.
type Attachment struct {
	ID         uuid.UUID `json:"id"`
	IssueID    uuid.UUID `json:"issue_id"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	Filename   string    `json:"filename"`
	Path       string    `json:"-"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// WorkLog records work performed by staff on an issue.
type WorkLog struct {
	ID            uuid.UUID `json:"id"`
	IssueID       uuid.UUID `json:"issue_id"`
	AdminID       uuid.UUID `json:"admin_id"`
	WorkType      string    `json:"work_type"`
	Description   string    `json:"description"`
	HoursSpent    float64   `json:"hours_spent"`
	MaterialsUsed string    `json:"materials_used,omitempty"`
	Outcome       string    `json:"outcome"`
	NextSteps     string    `json:"next_steps,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProgressUpdate is a staff-authored update shown to the reporter.
type ProgressUpdate struct {
	ID                  uuid.UUID  `json:"id"`
	IssueID             uuid.UUID  `json:"issue_id"`
	AdminID             uuid.UUID  `json:"admin_id"`
	UpdateType          string     `json:"update_type"`
	ProgressPercentage  int        `json:"progress_percentage"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	NextSteps           string     `json:"next_steps,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	IsMajorUpdate       bool       `json:"is_major_update"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Evidence is a file proving resolution work was done.
type Evidence struct {
	ID          uuid.UUID `json:"id"`
	IssueID     uuid.UUID `json:"issue_id"`
	AdminID     uuid.UUID `json:"admin_id"`
	Filename    string    `json:"filename"`
	Path        string    `json:"-"`
	URL         string    `json:"url"`
	FileType    string    `json:"file_type"`
	Description string    `json:"description,omitempty"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Filter narrows issue listings.
type Filter struct {
	Status     string
	Priority   string
	Category   string
	ReporterID *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// CreateParams carries the fields accepted when reporting an issue.
type CreateParams struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Location    string
	Visibility  string
}

// UpdateParams carries optional issue updates. Nil fields are left
// unchanged. Fields below the status group require staff role.
type UpdateParams struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Location    *string
	Visibility  *string
	Status      *string

	AdminNotes          *string
	ResolutionSummary   *string
	ResolutionDetails   *string
	EstimatedCompletion *time.Time
	ActualCompletion    *time.Time
	WorkHours           *float64
	ResolutionCost      *float64
}

// Stats summarizes a user's reported issues for the dashboard.
type Stats struct {
	TotalIssues        int     `json:"total_issues"`
	OpenIssues         int     `json:"open_issues"`
	InProgressIssues   int     `json:"in_progress_issues"`
	ResolvedIssues     int     `json:"resolved_issues"`
	ClosedIssues       int     `json:"closed_issues"`
	ResolutionRate     float64 `json:"resolution_rate"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// CountByLabel is a single bucket in a category or priority breakdown.
type CountByLabel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AdminStats summarizes all issues campus-wide.
type AdminStats struct {
	TotalIssues      int            `json:"total_issues"`
	OpenIssues       int            `json:"open_issues"`
	InProgressIssues int            `json:"in_progress_issues"`
	ResolvedIssues   int            `json:"resolved_issues"`
	ClosedIssues     int            `json:"closed_issues"`
	ResolutionRate   float64        `json:"resolution_rate"`
	ByCategory       []CountByLabel `json:"category_stats"`
	ByPriority       []CountByLabel `json:"priority_stats"`
}
