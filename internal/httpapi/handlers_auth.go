package httpapi

import (
	"net/http"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/pkg/logger"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		StudentID string `json:"student_id"`
		Phone     string `json:"phone"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), accounts.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		StudentID: req.StudentID,
		Phone:     req.Phone,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	tokens, err := h.accounts.IssueTokens(user)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	if result.TwoFactorRequired {
		respond(w, http.StatusOK, map[string]any{
			"two_factor_required": true,
		})
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"user":   result.User,
		"tokens": result.Tokens,
	})
}

func (h *Handler) handleLoginVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.twofactor.VerifyLogin(r.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		respondError(w, err)
		return
	}

	tokens, err := h.accounts.IssueTokens(user)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

// handleLogout is best-effort: tokens are stateless, so logout only
// drops the two-factor verification marker. The client discards its
// token pair.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.twofactor.ClearVerification(r.Context(), userFrom(r.Context()).ID); err != nil {
		h.log.WarnContext(r.Context(), "failed to clear verification marker",
			logger.Error(err),
			logger.Component("httpapi"),
		)
	}
	respond(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	tokens, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, tokens)
}

// handleForgotPassword always answers 202 so the endpoint cannot be
// used to probe which emails have accounts.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.passreset.Request(r.Context(), req.Email)
	if err != nil {
		h.log.ErrorContext(r.Context(), "password reset request failed",
			logger.Error(err),
			logger.Component("httpapi"),
		)
	}

	body := map[string]any{
		"message": "If that email is registered, a reset link has been sent.",
	}
	if h.devMode && result != nil && result.Token != "" {
		body["token"] = result.Token
	}
	respond(w, http.StatusAccepted, body)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.passreset.Consume(r.Context(), req.Token, req.Password); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{
		"message": "Password updated. You can now log in.",
	})
}
