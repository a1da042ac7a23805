package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/authz"
	"venuepermits/internal/middleware"
)

// BaseHandler carries what every resource handler shares.
type BaseHandler struct {
	Logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return BaseHandler{Logger: logger}
}

// principal returns the authenticated caller or writes a 401.
func (h BaseHandler) principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeJSONErrorResponse(w, http.StatusUnauthorized, string(apperrors.CodeUnauthorized), "authentication required", nil)
		return authz.Principal{}, false
	}
	return p, true
}

// pathID reads the {id} URL parameter. Values that are not UUIDs cannot
// name a stored record and are reported as not found.
func (h BaseHandler) pathID(w http.ResponseWriter, r *http.Request, resource string) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(w, r, apperrors.NotFound(resource, id))
		return "", false
	}
	return id, true
}

func (h BaseHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, h.Logger, err)
}
