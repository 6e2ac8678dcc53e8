package httpapi

import (
	"net/http"

	"github.com/campusfix/campusfix/internal/accounts"
)

// maxUploadSize caps multipart uploads (avatars, attachments, evidence).
const maxUploadSize = 10 << 20

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, userFrom(r.Context()))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Phone     *string `json:"phone"`
		StudentID *string `json:"student_id"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userFrom(r.Context()).ID, accounts.UpdateProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		StudentID: req.StudentID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, user)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userFrom(r.Context()).ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "Password changed."})
}

func (h *Handler) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, err)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		badRequest(w, err)
		return
	}
	defer file.Close() //nolint:errcheck

	user, err := h.accounts.UpdateAvatar(r.Context(), userFrom(r.Context()).ID,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, user)
}

func (h *Handler) handleTwoFactorStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.twofactor.Status(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, status)
}

func (h *Handler) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	result, err := h.twofactor.InitiateSetup(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.twofactor.VerifySetup(r.Context(), userFrom(r.Context()).ID, req.Code); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"enabled": true})
}

func (h *Handler) handleTwoFactorVerified(w http.ResponseWriter, r *http.Request) {
	verified, err := h.twofactor.IsVerified(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"verified": verified})
}

func (h *Handler) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.twofactor.Disable(r.Context(), userFrom(r.Context()).ID, req.Password); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"enabled": false})
}

func (h *Handler) handleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	backupCodes, err := h.twofactor.RegenerateBackupCodes(r.Context(), userFrom(r.Context()).ID, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"backup_codes": backupCodes})
}
