// Package httpapi exposes the JSON API consumed by the CampusFix web
// client.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/issues"
	"github.com/campusfix/campusfix/internal/notifications"
	"github.com/campusfix/campusfix/internal/passreset"
	"github.com/campusfix/campusfix/internal/twofactor"
)

// Handler bundles the domain services behind the HTTP API.
type Handler struct {
	accounts  *accounts.Service
	twofactor *twofactor.Service
	passreset *passreset.Service
	issues    *issues.Service
	notifs    *notifications.Manager
	log       *slog.Logger

	// devMode exposes raw reset tokens in responses so the flow can be
	// exercised without a mail sink. Never enabled in production.
	devMode bool
}

type Option func(*Handler)

// WithLogger sets a custom logger for the handler.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// WithDevMode exposes raw reset tokens in API responses.
func WithDevMode(enabled bool) Option {
	return func(h *Handler) { h.devMode = enabled }
}

// NewHandler creates the API handler.
func NewHandler(
	accountsSvc *accounts.Service,
	twofactorSvc *twofactor.Service,
	passresetSvc *passreset.Service,
	issuesSvc *issues.Service,
	notifs *notifications.Manager,
	opts ...Option,
) *Handler {
	h := &Handler{
		accounts:  accountsSvc,
		twofactor: twofactorSvc,
		passreset: passresetSvc,
		issues:    issuesSvc,
		notifs:    notifs,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	authLimiter := newRateLimiter(10, time.Minute)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter.middleware).Group(func(r chi.Router) {
				r.Post("/register", h.handleRegister)
				r.Post("/login", h.handleLogin)
				r.Post("/login/verify", h.handleLoginVerify)
				r.Post("/password/forgot", h.handleForgotPassword)
				r.Post("/password/reset", h.handleResetPassword)
			})
			r.Post("/refresh", h.handleRefresh)
			r.With(h.requireAuth).Post("/logout", h.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.handleMe)
				r.Patch("/", h.handleUpdateProfile)
				r.Post("/password", h.handleChangePassword)
				r.Post("/avatar", h.handleUploadAvatar)

				r.Route("/2fa", func(r chi.Router) {
					r.Get("/", h.handleTwoFactorStatus)
					r.Get("/verified", h.handleTwoFactorVerified)
					r.Post("/setup", h.handleTwoFactorSetup)
					r.Post("/verify", h.handleTwoFactorVerify)
					r.Post("/disable", h.handleTwoFactorDisable)
					r.Post("/backup-codes", h.handleRegenerateBackupCodes)
				})
			})

			r.Route("/issues", func(r chi.Router) {
				r.Get("/", h.handleListIssues)
				r.Post("/", h.handleCreateIssue)
				r.Get("/search", h.handleSearchIssues)

				r.Route("/{issueID}", func(r chi.Router) {
					r.Get("/", h.handleGetIssue)
					r.Patch("/", h.handleUpdateIssue)
					r.Delete("/", h.handleDeleteIssue)
					r.Post("/upvote", h.handleToggleUpvote)
					r.Get("/comments", h.handleListComments)
					r.Post("/comments", h.handleAddComment)
					r.Get("/attachments", h.handleListAttachments)
					r.Post("/attachments", h.handleUploadAttachment)
					r.Get("/progress", h.handleListProgressUpdates)
					r.Get("/evidence", h.handleListEvidence)

					r.Group(func(r chi.Router) {
						r.Use(h.requireAdmin)
						r.Get("/worklogs", h.handleListWorkLogs)
						r.Post("/worklogs", h.handleAddWorkLog)
						r.Post("/progress", h.handleAddProgressUpdate)
						r.Post("/evidence", h.handleUploadEvidence)
					})
				})
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", h.handleUserStats)
				r.Get("/recent", h.handleRecentIssues)
				r.With(h.requireAdmin).Get("/admin-stats", h.handleAdminStats)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.handleListNotifications)
				r.Get("/unread-count", h.handleUnreadCount)
				r.Post("/read", h.handleMarkRead)
				r.Post("/read-all", h.handleMarkAllRead)
			})
		})
	})

	return r
}
