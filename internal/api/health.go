package api

import (
	"context"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/store"
)

// Pinger reports database reachability.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// BusStatus reports message bus connectivity.
type BusStatus interface {
	IsConnected() bool
}

// StatsSource counts rows in the main tables.
type StatsSource interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

// HealthHandler provides health and stats endpoints.
type HealthHandler struct {
	db        Pinger
	stats     StatsSource
	bus       BusStatus
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. bus may be nil when NATS is
// not configured.
func NewHealthHandler(db Pinger, stats StatsSource, bus BusStatus) *HealthHandler {
	return &HealthHandler{
		db:        db,
		stats:     stats,
		bus:       bus,
		startTime: time.Now(),
	}
}

// Health returns the service health status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "connected"
	if err := h.db.HealthCheck(ctx); err != nil {
		dbStatus = "disconnected"
	}

	busStatus := "disconnected"
	if h.bus != nil && h.bus.IsConnected() {
		busStatus = "connected"
	}

	resp := map[string]any{
		"status":         "healthy",
		"database":       dbStatus,
		"hermes":         busStatus,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}
	if dbStatus == "disconnected" {
		resp["status"] = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats returns row counts and uptime.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load stats")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"counts":         stats,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}
