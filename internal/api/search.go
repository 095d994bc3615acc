package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/empire/internal/ingest"
)

// Searcher ranks stored documents against free text.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]ingest.SearchResult, error)
}

// SearchHandler serves document search.
type SearchHandler struct {
	search Searcher
	logger *slog.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(search Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// Documents handles GET /search/documents?query=&limit=.
func (h *SearchHandler) Documents(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "query is required")
		return
	}
	limit, ok := queryLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
		return
	}

	results, err := h.search.Search(r.Context(), query, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "search")
		return
	}
	writeSuccess(w, http.StatusOK, results)
}
