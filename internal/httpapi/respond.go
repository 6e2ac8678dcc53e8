package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/issues"
	"github.com/campusfix/campusfix/internal/passreset"
	"github.com/campusfix/campusfix/internal/twofactor"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps domain sentinel errors onto HTTP status codes.
// Unrecognized errors become an opaque 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, accounts.ErrTokenInvalid),
		errors.Is(err, accounts.ErrTokenExpired):
		respond(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})

	case errors.Is(err, issues.ErrForbidden):
		respond(w, http.StatusForbidden, errorResponse{Error: err.Error()})

	case errors.Is(err, accounts.ErrUserNotFound),
		errors.Is(err, issues.ErrIssueNotFound):
		respond(w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, accounts.ErrEmailAlreadyExists):
		respond(w, http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, twofactor.ErrAlreadyEnabled),
		errors.Is(err, twofactor.ErrNotEnabled),
		errors.Is(err, twofactor.ErrSetupNotInitiated):
		respond(w, http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, twofactor.ErrInvalidCode),
		errors.Is(err, twofactor.ErrInvalidPassword),
		errors.Is(err, passreset.ErrInvalidOrExpiredToken),
		errors.Is(err, accounts.ErrInvalidEmail),
		errors.Is(err, accounts.ErrWeakPassword),
		errors.Is(err, issues.ErrInvalidTitle),
		errors.Is(err, issues.ErrInvalidCategory),
		errors.Is(err, issues.ErrInvalidStatus),
		errors.Is(err, issues.ErrInvalidPriority),
		errors.Is(err, issues.ErrInvalidVisibility),
		errors.Is(err, issues.ErrInvalidWorkType),
		errors.Is(err, issues.ErrInvalidUpdateType),
		errors.Is(err, issues.ErrInvalidProgress):
		respond(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	default:
		respond(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decode parses a JSON request body into v.
func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	respond(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}
