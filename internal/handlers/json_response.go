package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"venuepermits/internal/apperrors"
)

// maxJSONBody caps request bodies decoded as JSON.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func writeJSONErrorResponse(w http.ResponseWriter, status int, code string, message string, details map[string]string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message, Details: details})
}

// writeServiceError renders err with the status of its code. Internal
// errors are logged and their cause is not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := apperrors.As(err)
	status := e.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONErrorResponse(w, status, string(apperrors.CodeInternal), "internal server error", nil)
		return
	}
	writeJSONErrorResponse(w, status, string(e.Code), e.Message, e.Metadata)
}

// decodeJSON reads a JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONErrorResponse(w, http.StatusRequestEntityTooLarge, string(apperrors.CodeInvalid), "request body too large", nil)
			return false
		}
		writeJSONErrorResponse(w, http.StatusBadRequest, string(apperrors.CodeInvalid), "Invalid JSON: "+err.Error(), nil)
		return false
	}
	return true
}
