package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/redact"
)

// actorFromRequest returns the authenticated user's ID, writing a 401 when
// the request carries no principal.
func actorFromRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	p, ok := shared.PrincipalFrom(r.Context())
	if !ok {
		log.Warn("principal not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return p.UserID, true
}

// pathUUID parses a UUID path parameter, writing a 400 when it is malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, param string, log *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		log.Warn("invalid path parameter", slog.String("param_name", param), slog.String("value", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// parseStatus normalizes a client-supplied status. Values that do not parse
// are passed through unchanged so the board service can reject them with
// the error that fits the operation.
func parseStatus(raw string) domain.TaskStatus {
	if status, err := domain.ParseTaskStatus(raw); err == nil {
		return status
	}
	return domain.TaskStatus(raw)
}

// pathStatus parses the {status} path parameter, writing a 400 when it is
// not a board column.
func pathStatus(w http.ResponseWriter, r *http.Request, log *slog.Logger) (domain.TaskStatus, bool) {
	raw := chi.URLParam(r, "status")
	status, err := domain.ParseTaskStatus(raw)
	if err != nil {
		log.Warn("invalid status path parameter", slog.String("value", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status")
		return "", false
	}
	return status, true
}

// decodeAndValidate reads the JSON body into req and validates it, writing
// a 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any, log *slog.Logger) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// optionalUUID parses an optional UUID field already checked by the
// validator. Empty yields uuid.Nil.
func optionalUUID(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	return uuid.MustParse(raw)
}
