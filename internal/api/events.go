package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/empire/internal/store"
)

// EventLister reads the event log.
type EventLister interface {
	ListEvents(ctx context.Context, eventType *string, limit int) ([]store.Event, error)
}

// EventHandler serves the event log.
type EventHandler struct {
	events EventLister
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events EventLister, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// List handles GET /events?limit=&type=.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
		return
	}

	var eventType *string
	if t := r.URL.Query().Get("type"); t != "" {
		eventType = &t
	}

	events, err := h.events.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "events")
		return
	}
	writeSuccess(w, http.StatusOK, events)
}
