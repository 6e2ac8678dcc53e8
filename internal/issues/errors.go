package issues

import "errors"

var (
	ErrIssueNotFound     = errors.New("issue not found")
	ErrInvalidTitle      = errors.New("title is required")
	ErrInvalidCategory   = errors.New("unknown category")
	ErrInvalidStatus     = errors.New("unknown status")
	ErrInvalidPriority   = errors.New("unknown priority")
	ErrInvalidVisibility = errors.New("unknown visibility")
	ErrInvalidWorkType   = errors.New("unknown work type")
	ErrInvalidUpdateType = errors.New("unknown update type")
	ErrInvalidProgress   = errors.New("progress must be between 0 and 100")
	ErrForbidden         = errors.New("operation not permitted")
)
