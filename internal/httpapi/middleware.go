package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/campusfix/campusfix/internal/accounts"
)

type contextKey string

const userContextKey contextKey = "httpapi.user"

// userFrom returns the authenticated account stored by the auth
// middleware, or nil.
func userFrom(ctx context.Context) *accounts.User {
	user, _ := ctx.Value(userContextKey).(*accounts.User)
	return user
}

// requireAuth verifies the Bearer token and stores the account in the
// request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respond(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		user, err := h.accounts.VerifyAccessToken(r.Context(), token)
		if err != nil {
			respondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-staff accounts. Must run after requireAuth.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if user == nil || !user.IsAdmin() {
			respond(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
