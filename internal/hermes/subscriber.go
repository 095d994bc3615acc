package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/empire/internal/ingest"
)

// IngestSubject carries purchase documents submitted over the bus.
const IngestSubject = SubjectPrefix + "ingest.purchase"

const handleTimeout = 30 * time.Second

// Ingester is the pipeline entry point the subscriber feeds.
type Ingester interface {
	Ingest(ctx context.Context, up ingest.Upload) (*ingest.Result, error)
}

// IngestRequest is the data of an envelope on IngestSubject.
type IngestRequest struct {
	LLCName  string `json:"llc_name"`
	Filename string `json:"filename"`
	Mime     string `json:"mime"`
	Content  string `json:"content"`
}

// IngestEnvelope is the envelope wrapping an IngestRequest.
type IngestEnvelope struct {
	ID     string        `json:"id"`
	Type   string        `json:"type"`
	Source string        `json:"source"`
	Data   IngestRequest `json:"data"`
}

// Subscriber ingests purchase documents published to the bus.
type Subscriber struct {
	client   *Client
	ingester Ingester
	logger   *slog.Logger
	subs     []*nats.Subscription
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(client *Client, ingester Ingester, logger *slog.Logger) *Subscriber {
	return &Subscriber{client: client, ingester: ingester, logger: logger}
}

// Start subscribes to IngestSubject.
func (s *Subscriber) Start(_ context.Context) error {
	subjects := map[string]nats.MsgHandler{
		IngestSubject: s.handleIngest,
	}

	for subject, handler := range subjects {
		// Try JetStream durable consumer first, fall back to core NATS
		sub, err := s.client.js.Subscribe(subject, handler,
			nats.Durable("empire-"+sanitizeSubject(subject)),
			nats.DeliverAll(),
			nats.AckExplicit(),
			nats.MaxDeliver(3),
		)
		if err != nil {
			s.logger.Warn("JetStream subscribe failed, using core NATS", "subject", subject, "error", err)
			sub, err = s.client.conn.Subscribe(subject, handler)
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", subject, err)
			}
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("subscribed", "subject", subject)
	}
	return nil
}

// Stop unsubscribes from all subjects.
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}

func (s *Subscriber) handleIngest(msg *nats.Msg) {
	var env IngestEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.logger.Error("failed to parse ingest envelope", "error", err, "subject", msg.Subject)
		s.ack(msg)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	res, err := s.ingester.Ingest(ctx, ingest.Upload{
		LLCName:  env.Data.LLCName,
		Filename: env.Data.Filename,
		Mime:     env.Data.Mime,
		Content:  []byte(env.Data.Content),
	})
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidInput) || errors.Is(err, ingest.ErrEmptyDocument) {
			s.logger.Warn("rejected ingest message", "event_id", env.ID, "error", err)
			s.ack(msg)
			return
		}
		s.logger.Error("ingest from bus failed", "event_id", env.ID, "error", err)
		s.nak(msg)
		return
	}

	s.logger.Info("ingested purchase from bus",
		"event_id", env.ID,
		"source", env.Source,
		"purchase_order_id", res.PurchaseOrder.ID,
		"suggestions", len(res.Suggestions),
	)
	s.ack(msg)
}

func (s *Subscriber) ack(msg *nats.Msg) {
	if msg.Reply != "" {
		_ = msg.Ack()
	}
}

// nak asks JetStream to redeliver. Core NATS messages are dropped.
func (s *Subscriber) nak(msg *nats.Msg) {
	if _, err := msg.Metadata(); err == nil {
		_ = msg.Nak()
	}
}

func sanitizeSubject(subject string) string {
	r := ""
	for _, c := range subject {
		switch c {
		case '.', '>', '*':
			r += "-"
		default:
			r += string(c)
		}
	}
	return r
}
