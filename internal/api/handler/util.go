package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fxops/backoffice/internal/api/middleware"
	"github.com/fxops/backoffice/internal/api/problem"
	"github.com/fxops/backoffice/internal/domain"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, errors.New("missing user in auth context")
	}
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, errors.New("invalid user_id in auth context")
	}
	return actorID, nil
}

// respondServiceError translates domain and database errors into problem
// responses. Anything unrecognized becomes a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if status, problemType, message, ok := mapDBError(err); ok {
		RespondError(w, r, status, problemType, message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		RespondError(w, r, http.StatusBadRequest, "order/invalid-amount", err.Error())
	case errors.Is(err, domain.ErrPreconditionFailed):
		RespondError(w, r, http.StatusConflict, "order/precondition-failed", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", err.Error())
	case errors.Is(err, domain.ErrDuplicateGroup):
		RespondError(w, r, http.StatusConflict, "profit/duplicate-group", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "resource not found")
	case errors.Is(err, domain.ErrUpstream):
		RespondError(w, r, http.StatusBadGateway, "upstream/unavailable", "upstream dependency failed")
	default:
		RespondError(w, r, http.StatusInternalServerError, "internal/unexpected", "internal error")
	}
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

func parseUUIDParam(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	return id, err == nil
}
