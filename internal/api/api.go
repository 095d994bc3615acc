// Package api provides HTTP handlers for the Empire REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/ingest"
)

const defaultLimit = 50

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeSuccess writes a standard success response.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"data": data,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeServiceError maps pipeline errors to status codes. Anything unknown is
// logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, what string) {
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", what+" not found")
	case errors.Is(err, ingest.ErrAlreadyApproved):
		writeError(w, http.StatusBadRequest, "ALREADY_APPROVED", "Suggestion already approved")
	case errors.Is(err, ingest.ErrStaleSnapshot):
		writeError(w, http.StatusConflict, "CONFLICT", "Order was evaluated concurrently, retry")
	case errors.Is(err, ingest.ErrEmptyDocument):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Uploaded file is empty")
	case errors.Is(err, ingest.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		logger.Error("request failed", "resource", what, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process "+what)
	}
}

// queryLimit reads ?limit=, falling back to defaultLimit. ok is false when the
// value is present but not a non-negative integer.
func queryLimit(r *http.Request) (limit int, ok bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
