package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/store"
)

// SubjectPrefix namespaces every subject Empire publishes or consumes.
const SubjectPrefix = "empire."

// Conn is the part of a NATS connection the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Envelope is the standard event wrapper on the bus.
type Envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Publisher mirrors persisted events onto the bus.
type Publisher struct {
	conn   Conn
	logger *slog.Logger
}

// NewPublisher creates a Publisher. *Client satisfies Conn.
func NewPublisher(conn Conn, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Subject returns the subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Publish sends e on empire.<event_type>.
func (p *Publisher) Publish(_ context.Context, e store.Event) error {
	subject := Subject(e.EventType)
	data, err := json.Marshal(Envelope{
		ID:        e.ID.String(),
		Type:      e.EventType,
		Source:    Source,
		Timestamp: e.CreatedAt,
		Data:      e.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.logger.Debug("published event", "subject", subject, "type", e.EventType)
	return nil
}
