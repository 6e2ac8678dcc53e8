package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusfix/campusfix/internal/issues"
)

func issueIDFrom(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "issueID"))
}

func (h *Handler) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Priority    string `json:"priority"`
		Location    string `json:"location"`
		Visibility  string `json:"visibility"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	issue, err := h.issues.Create(r.Context(), issues.ActorFromUser(userFrom(r.Context())), issues.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.Location,
		Visibility:  req.Visibility,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, issue)
}

func (h *Handler) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := issues.Filter{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    intQuery(q.Get("limit"), 20),
		Offset:   intQuery(q.Get("offset"), 0),
	}
	if q.Get("mine") == "true" {
		id := userFrom(r.Context()).ID
		filter.ReporterID = &id
	}

	list, err := h.issues.List(r.Context(), issues.ActorFromUser(userFrom(r.Context())), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"issues": list})
}

func (h *Handler) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	issue, err := h.issues.Get(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, issue)
}

func (h *Handler) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Priority    *string `json:"priority"`
		Location    *string `json:"location"`
		Visibility  *string `json:"visibility"`
		Status      *string `json:"status"`

		AdminNotes          *string    `json:"admin_notes"`
		ResolutionSummary   *string    `json:"resolution_summary"`
		ResolutionDetails   *string    `json:"resolution_details"`
		EstimatedCompletion *time.Time `json:"estimated_completion"`
		ActualCompletion    *time.Time `json:"actual_completion"`
		WorkHours           *float64   `json:"work_hours"`
		ResolutionCost      *float64   `json:"resolution_cost"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	issue, err := h.issues.Update(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id, issues.UpdateParams{
		Title:               req.Title,
		Description:         req.Description,
		Category:            req.Category,
		Priority:            req.Priority,
		Location:            req.Location,
		Visibility:          req.Visibility,
		Status:              req.Status,
		AdminNotes:          req.AdminNotes,
		ResolutionSummary:   req.ResolutionSummary,
		ResolutionDetails:   req.ResolutionDetails,
		EstimatedCompletion: req.EstimatedCompletion,
		ActualCompletion:    req.ActualCompletion,
		WorkHours:           req.WorkHours,
		ResolutionCost:      req.ResolutionCost,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, issue)
}

func (h *Handler) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.issues.Delete(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggleUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	upvoted, count, err := h.issues.ToggleUpvote(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"upvoted":      upvoted,
		"upvote_count": count,
	})
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	comments, err := h.issues.ListComments(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"comments": comments})
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	comment, err := h.issues.AddComment(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id, req.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, comment)
}

func (h *Handler) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	attachments, err := h.issues.ListAttachments(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"attachments": attachments})
}

func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, err)
		return
	}
	defer file.Close() //nolint:errcheck

	attachment, err := h.issues.AddAttachment(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, attachment)
}

func (h *Handler) handleListWorkLogs(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	logs, err := h.issues.ListWorkLogs(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"work_logs": logs})
}

func (h *Handler) handleAddWorkLog(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req struct {
		WorkType      string  `json:"work_type"`
		Description   string  `json:"description"`
		HoursSpent    float64 `json:"hours_spent"`
		MaterialsUsed string  `json:"materials_used"`
		Outcome       string  `json:"outcome"`
		NextSteps     string  `json:"next_steps"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	log, err := h.issues.AddWorkLog(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id, issues.WorkLogParams{
		WorkType:      req.WorkType,
		Description:   req.Description,
		HoursSpent:    req.HoursSpent,
		MaterialsUsed: req.MaterialsUsed,
		Outcome:       req.Outcome,
		NextSteps:     req.NextSteps,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, log)
}

func (h *Handler) handleListProgressUpdates(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	updates, err := h.issues.ListProgressUpdates(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"progress_updates": updates})
}

func (h *Handler) handleAddProgressUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req struct {
		UpdateType          string     `json:"update_type"`
		ProgressPercentage  int        `json:"progress_percentage"`
		Title               string     `json:"title"`
		Description         string     `json:"description"`
		NextSteps           string     `json:"next_steps"`
		EstimatedCompletion *time.Time `json:"estimated_completion"`
		IsMajorUpdate       bool       `json:"is_major_update"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	update, err := h.issues.AddProgressUpdate(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id, issues.ProgressParams{
		UpdateType:          req.UpdateType,
		ProgressPercentage:  req.ProgressPercentage,
		Title:               req.Title,
		Description:         req.Description,
		NextSteps:           req.NextSteps,
		EstimatedCompletion: req.EstimatedCompletion,
		IsMajorUpdate:       req.IsMajorUpdate,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, update)
}

func (h *Handler) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	evidence, err := h.issues.ListEvidence(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"evidence": evidence})
}

func (h *Handler) handleUploadEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := issueIDFrom(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, err)
		return
	}
	defer file.Close() //nolint:errcheck

	evidence, err := h.issues.AddEvidence(r.Context(), issues.ActorFromUser(userFrom(r.Context())), id,
		header.Filename, header.Header.Get("Content-Type"),
		r.FormValue("file_type"), r.FormValue("description"), file)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, evidence)
}

func (h *Handler) handleSearchIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.issues.Search(r.Context(), issues.ActorFromUser(userFrom(r.Context())),
		q.Get("q"), intQuery(q.Get("limit"), 20))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"issues": results})
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.issues.UserStats(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}

func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.issues.AdminStats(r.Context(), issues.ActorFromUser(userFrom(r.Context())))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}

func (h *Handler) handleRecentIssues(w http.ResponseWriter, r *http.Request) {
	recent, err := h.issues.RecentIssues(r.Context(), userFrom(r.Context()).ID,
		intQuery(r.URL.Query().Get("limit"), 5))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"issues": recent})
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
