package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/campusfix/campusfix/internal/notifications"
)

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.notifs.List(r.Context(), userFrom(r.Context()).ID, notifications.ListOptions{
		Limit:      intQuery(q.Get("limit"), 20),
		Offset:     intQuery(q.Get("offset"), 0),
		OnlyUnread: q.Get("unread") == "true",
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"notifications": list})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifs.CountUnread(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if len(req.IDs) == 0 {
		respond(w, http.StatusOK, map[string]string{"message": "Nothing to mark."})
		return
	}

	if err := h.notifs.MarkRead(r.Context(), userFrom(r.Context()).ID, req.IDs...); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "Marked as read."})
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifs.MarkAllRead(r.Context(), userFrom(r.Context()).ID); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "All notifications marked as read."})
}
