// Package ingest orchestrates the purchase pipeline: store the document, parse
// it, persist the order and its fingerprint, then run the finance rules.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/embeddings"
	"github.com/MikeSquared-Agency/empire/internal/media"
	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

var (
	// ErrNotFound is returned when an order, suggestion or document does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrAlreadyApproved is returned when approving a suggestion twice.
	ErrAlreadyApproved = errors.New("suggestion already approved")
	// ErrStaleSnapshot is returned when another evaluation of the same order
	// committed between reading the snapshot and writing suggestions.
	ErrStaleSnapshot = errors.New("evaluation snapshot is stale")
	// ErrEmptyDocument is returned for uploads without content.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the persistence the pipeline needs. *store.Repo implements it.
type Repository interface {
	FindOrCreateLLC(ctx context.Context, name string) (*store.LLC, error)
	FindOrCreateVendor(ctx context.Context, name string) (*store.Vendor, error)

	CreateMediaObject(ctx context.Context, m *store.MediaObject) error
	GetMediaObject(ctx context.Context, id uuid.UUID) (*store.MediaObject, error)
	UpsertDocumentVector(ctx context.Context, v *store.DocumentVector) error
	ListDocumentVectors(ctx context.Context, strategy string) ([]store.DocumentVector, error)
	MediaWithoutVectors(ctx context.Context, strategy string, limit int) ([]store.MediaObject, error)
	MarkReindexAttempt(ctx context.Context, id uuid.UUID) error

	CreatePurchaseOrder(ctx context.Context, o *store.PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*store.PurchaseOrder, error)
	LockPurchaseOrder(ctx context.Context, id uuid.UUID) (*store.PurchaseOrder, error)
	BumpEvaluationVersion(ctx context.Context, id uuid.UUID, expected int64) (int64, error)
	ListPurchaseOrders(ctx context.Context, limit int) ([]store.PurchaseOrder, error)
	CountOpenVendorOrders(ctx context.Context, vendorID, exclude uuid.UUID) (int, error)
	CreateAsset(ctx context.Context, a *store.Asset) error

	CreateSuggestion(ctx context.Context, s *rules.Suggestion) error
	SuggestionTypes(ctx context.Context, orderID uuid.UUID) ([]string, error)
	LockSuggestion(ctx context.Context, id uuid.UUID) (*rules.Suggestion, error)
	MarkSuggestionApproved(ctx context.Context, s *rules.Suggestion) error
	ListSuggestions(ctx context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error)

	CreateEvent(ctx context.Context, e *store.Event) error
	ListEvents(ctx context.Context, eventType *string, limit int) ([]store.Event, error)

	Stats(ctx context.Context) (*store.Stats, error)
}

// Store is a Repository that can also run work in a transaction.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Documents keeps the raw bytes of uploaded files.
type Documents interface {
	Save(name string, data []byte) (media.Saved, error)
	Read(path string) ([]byte, error)
	Remove(path string) error
}

// Publisher fans committed events out to other services.
type Publisher interface {
	Publish(ctx context.Context, e store.Event) error
}

// Service runs the ingest pipeline.
type Service struct {
	store     Store
	docs      Documents
	engine    *rules.Engine
	embedder  embeddings.Provider
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. publisher may be nil.
func NewService(st Store, docs Documents, engine *rules.Engine, embedder embeddings.Provider, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     st,
		docs:      docs,
		engine:    engine,
		embedder:  embedder,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// publish sends events after commit. Failures are logged, never returned.
func (s *Service) publish(ctx context.Context, events []store.Event) {
	if s.publisher == nil {
		return
	}
	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("failed to publish event", "type", e.EventType, "id", e.ID, "error", err)
		}
	}
}

// ListEvents returns the newest events first.
func (s *Service) ListEvents(ctx context.Context, eventType *string, limit int) ([]store.Event, error) {
	return s.store.ListEvents(ctx, eventType, limit)
}

// ListPurchaseOrders returns the newest orders first.
func (s *Service) ListPurchaseOrders(ctx context.Context, limit int) ([]store.PurchaseOrder, error) {
	return s.store.ListPurchaseOrders(ctx, limit)
}

// ListSuggestions returns the newest suggestions first.
func (s *Service) ListSuggestions(ctx context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error) {
	return s.store.ListSuggestions(ctx, limit, pendingOnly)
}

// Stats returns table counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}
