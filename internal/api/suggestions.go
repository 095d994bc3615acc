package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/empire/internal/ingest"
	"github.com/MikeSquared-Agency/empire/internal/middleware"
	"github.com/MikeSquared-Agency/empire/internal/rules"
)

// Suggestions lists and approves agent suggestions.
type Suggestions interface {
	ListSuggestions(ctx context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error)
	ApproveSuggestion(ctx context.Context, id string) (*ingest.Approval, error)
}

// SuggestionHandler provides the agent suggestion endpoints.
type SuggestionHandler struct {
	svc    Suggestions
	logger *slog.Logger
}

// NewSuggestionHandler creates a SuggestionHandler.
func NewSuggestionHandler(svc Suggestions, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{svc: svc, logger: logger}
}

// List handles GET /agents/suggestions?limit=&pending=.
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
		return
	}

	pending := false
	if raw := r.URL.Query().Get("pending"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "pending must be a boolean")
			return
		}
		pending = b
	}

	suggestions, err := h.svc.ListSuggestions(r.Context(), limit, pending)
	if err != nil {
		writeServiceError(w, h.logger, err, "suggestions")
		return
	}
	writeSuccess(w, http.StatusOK, suggestions)
}

// Approve handles POST /agents/suggestions/{id}/approve.
func (h *SuggestionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	approval, err := h.svc.ApproveSuggestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "suggestion")
		return
	}

	h.logger.Info("suggestion approved via api",
		"agent", middleware.AgentIDFromContext(r.Context()),
		"suggestion_id", approval.Suggestion.ID,
	)
	writeSuccess(w, http.StatusOK, approval)
}
