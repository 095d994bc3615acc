package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types written by the ingest pipeline.
const (
	EventIngestReceived       = "ingest.received"
	EventIngestParsed         = "ingest.parsed"
	EventPurchaseOrderCreated = "purchase_order.created"
	EventSuggestionCreated    = "suggestion.created"
)

// Event is an append-only timeline record.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateEvent inserts e. A zero id or timestamp is filled in.
func (r *Repo) CreateEvent(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
		e.ID, e.EventType, e.Payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing event %s: %w", e.EventType, err)
	}
	return nil
}

// ListEvents returns the newest events first, optionally filtered by type.
func (r *Repo) ListEvents(ctx context.Context, eventType *string, limit int) ([]Event, error) {
	query := `SELECT id, event_type, payload, created_at FROM events WHERE 1=1`
	var args []any
	argN := 1

	if eventType != nil {
		query += fmt.Sprintf(" AND event_type = $%d", argN)
		args = append(args, *eventType)
		argN++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argN)
	args = append(args, clampLimit(limit, 50, 500))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
