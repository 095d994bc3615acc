package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/briefings"
)

// BriefingGenerator builds FinanceAgent briefings.
type BriefingGenerator interface {
	Generate(ctx context.Context, since time.Time, maxItems int) (*briefings.Briefing, error)
}

// BriefingHandler serves the agent briefing.
type BriefingHandler struct {
	assembler BriefingGenerator
	logger    *slog.Logger
}

// NewBriefingHandler creates a BriefingHandler.
func NewBriefingHandler(assembler BriefingGenerator, logger *slog.Logger) *BriefingHandler {
	return &BriefingHandler{assembler: assembler, logger: logger}
}

// Generate handles GET /agents/briefing?since=&max_items=. since is RFC 3339
// and defaults to 24 hours ago.
func (h *BriefingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid 'since' parameter, use RFC3339 format")
			return
		}
		since = parsed
	}

	maxItems := 50
	if s := r.URL.Query().Get("max_items"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "max_items must be an integer")
			return
		}
		maxItems = n
	}

	briefing, err := h.assembler.Generate(r.Context(), since, maxItems)
	if err != nil {
		writeServiceError(w, h.logger, err, "briefing")
		return
	}
	writeSuccess(w, http.StatusOK, briefing)
}
