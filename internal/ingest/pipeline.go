package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/embeddings"
	"github.com/MikeSquared-Agency/empire/internal/extract"
	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

const (
	defaultFilename = "purchase.txt"
	defaultMime     = "text/plain"
)

// Upload is one purchase document submitted for ingestion.
type Upload struct {
	LLCName  string
	Filename string
	Mime     string
	Content  []byte
}

// Result is everything an ingestion created.
type Result struct {
	PurchaseOrder store.PurchaseOrder `json:"purchase_order"`
	Media         store.MediaObject   `json:"media_object"`
	Asset         *store.Asset        `json:"asset,omitempty"`
	Parsed        extract.Record      `json:"parsed"`
	Confidence    float64             `json:"confidence"`
	Events        []store.Event       `json:"events"`
	Suggestions   []rules.Suggestion  `json:"suggestions"`
}

// OrderStatus is the status persisted for a parsed record: the canonical
// payment status when known, else the raw status slugged, else "pending".
func OrderStatus(rec extract.Record) string {
	if rec.PaymentStatus != nil {
		return string(*rec.PaymentStatus)
	}
	if rec.Status != nil {
		if s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(*rec.Status)), " ", "-"); s != "" {
			return s
		}
	}
	return "pending"
}

// Ingest stores, parses, fingerprints and evaluates one document. All rows are
// written in a single transaction; events are published after commit.
func (s *Service) Ingest(ctx context.Context, up Upload) (*Result, error) {
	up.LLCName = strings.TrimSpace(up.LLCName)
	if up.LLCName == "" {
		return nil, fmt.Errorf("llc_name is required: %w", ErrInvalidInput)
	}
	if len(up.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	if up.Filename == "" {
		up.Filename = defaultFilename
	}
	if up.Mime == "" {
		up.Mime = defaultMime
	}

	saved, err := s.docs.Save(up.Filename, up.Content)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	text := decodeText(up.Content)
	rec, confidence := extract.Parse(text)

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.discard(saved.Path)
		return nil, fmt.Errorf("embedding document: %w", err)
	}

	res := &Result{Parsed: rec, Confidence: confidence}
	err = s.store.InTx(ctx, func(repo Repository) error {
		llc, err := repo.FindOrCreateLLC(ctx, up.LLCName)
		if err != nil {
			return err
		}

		res.Media = store.MediaObject{
			LLCID:       &llc.ID,
			MediaType:   "document",
			Mime:        up.Mime,
			Filename:    up.Filename,
			StoragePath: saved.Path,
			SHA256:      saved.SHA256,
		}
		if err := repo.CreateMediaObject(ctx, &res.Media); err != nil {
			return err
		}

		vendor, err := repo.FindOrCreateVendor(ctx, rec.VendorName)
		if err != nil {
			return err
		}

		res.PurchaseOrder = store.PurchaseOrder{
			LLCID:         llc.ID,
			VendorID:      vendor.ID,
			VendorName:    vendor.Name,
			MediaObjectID: res.Media.ID,
			TotalAmount:   rec.TotalAmount,
			Currency:      rec.Currency,
			Status:        OrderStatus(rec),
			DueDate:       rec.DueDate,
			Description:   rec.Description,
			Reference:     rec.Reference,
			Confidence:    confidence,
		}
		if err := repo.CreatePurchaseOrder(ctx, &res.PurchaseOrder); err != nil {
			return err
		}

		if rec.AssetName != nil {
			res.Asset = &store.Asset{PurchaseOrderID: res.PurchaseOrder.ID, Name: *rec.AssetName, Status: "pending"}
			if err := repo.CreateAsset(ctx, res.Asset); err != nil {
				return err
			}
		}

		res.Events = []store.Event{
			s.event(store.EventIngestReceived, map[string]any{
				"llc_id":          llc.ID.String(),
				"media_object_id": res.Media.ID.String(),
			}),
			s.event(store.EventIngestParsed, parsedPayload(rec, confidence)),
			s.event(store.EventPurchaseOrderCreated, map[string]any{
				"purchase_order_id": res.PurchaseOrder.ID.String(),
			}),
		}
		for i := range res.Events {
			if err := repo.CreateEvent(ctx, &res.Events[i]); err != nil {
				return err
			}
		}

		if err := repo.UpsertDocumentVector(ctx, &store.DocumentVector{
			MediaObjectID: res.Media.ID,
			Vector:        embeddings.ToPG(vec),
			Strategy:      s.embedder.Name(),
		}); err != nil {
			return err
		}

		suggestions, events, err := s.evaluateLocked(ctx, repo, res.PurchaseOrder.ID, text)
		if err != nil {
			return err
		}
		res.Suggestions = suggestions
		res.Events = append(res.Events, events...)
		return nil
	})
	if err != nil {
		s.discard(saved.Path)
		return nil, fmt.Errorf("ingesting %s: %w", up.Filename, err)
	}

	s.logger.Info("ingested purchase",
		"purchase_order_id", res.PurchaseOrder.ID,
		"vendor", res.PurchaseOrder.VendorName,
		"total", res.PurchaseOrder.TotalAmount,
		"confidence", confidence,
		"suggestions", len(res.Suggestions),
	)
	s.publish(ctx, res.Events)
	return res, nil
}

// discard removes a stored document whose rows never committed.
func (s *Service) discard(path string) {
	if err := s.docs.Remove(path); err != nil {
		s.logger.Warn("removing orphaned document", "path", path, "error", err)
	}
}

// Evaluate re-runs the rules for an existing order. Types already recorded are
// never emitted again, so repeated calls converge to no new suggestions.
func (s *Service) Evaluate(ctx context.Context, orderID string) ([]rules.Suggestion, error) {
	id, err := parseID(orderID)
	if err != nil {
		return nil, err
	}

	var suggestions []rules.Suggestion
	var events []store.Event
	err = s.store.InTx(ctx, func(repo Repository) error {
		order, err := repo.GetPurchaseOrder(ctx, id)
		if err != nil {
			return err
		}
		suggestions, events, err = s.evaluateLocked(ctx, repo, id, s.sourceText(ctx, repo, order))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating order %s: %w", orderID, err)
	}

	s.publish(ctx, events)
	return suggestions, nil
}

// evaluateLocked locks the order row, reads the snapshot, runs the engine and
// persists what it emitted. It must run inside a transaction.
func (s *Service) evaluateLocked(ctx context.Context, repo Repository, orderID uuid.UUID, sourceText string) ([]rules.Suggestion, []store.Event, error) {
	order, err := repo.LockPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	existing, err := repo.SuggestionTypes(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	open, err := repo.CountOpenVendorOrders(ctx, order.VendorID, order.ID)
	if err != nil {
		return nil, nil, err
	}

	snap := rules.Snapshot{
		Version:          order.EvaluationVersion,
		ExistingTypes:    existing,
		OpenVendorOrders: open,
		SourceText:       sourceText,
	}
	suggestions := s.engine.Evaluate(rules.Order{
		ID:          order.ID,
		VendorName:  order.VendorName,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		DueDate:     order.DueDate,
		Status:      order.Status,
	}, snap)

	events := make([]store.Event, 0, len(suggestions))
	for i := range suggestions {
		if err := repo.CreateSuggestion(ctx, &suggestions[i]); err != nil {
			return nil, nil, err
		}
		e := s.event(store.EventSuggestionCreated, map[string]any{
			"suggestion_id":     suggestions[i].ID.String(),
			"purchase_order_id": order.ID.String(),
			"suggestion_type":   suggestions[i].SuggestionType,
		})
		if err := repo.CreateEvent(ctx, &e); err != nil {
			return nil, nil, err
		}
		events = append(events, e)
	}

	if _, err := repo.BumpEvaluationVersion(ctx, order.ID, snap.Version); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, nil, fmt.Errorf("%w: %v", ErrStaleSnapshot, err)
		}
		return nil, nil, err
	}

	if suggestions == nil {
		suggestions = []rules.Suggestion{}
	}
	return suggestions, events, nil
}

// sourceText loads the order's document for link scanning. An unreadable
// document counts as having no text.
func (s *Service) sourceText(ctx context.Context, repo Repository, order *store.PurchaseOrder) string {
	m, err := repo.GetMediaObject(ctx, order.MediaObjectID)
	if err != nil {
		s.logger.Warn("source document lookup failed", "purchase_order_id", order.ID, "error", err)
		return ""
	}
	data, err := s.docs.Read(m.StoragePath)
	if err != nil {
		s.logger.Warn("source document unreadable", "purchase_order_id", order.ID, "path", m.StoragePath, "error", err)
		return ""
	}
	return decodeText(data)
}

func (s *Service) event(eventType string, payload map[string]any) store.Event {
	return store.Event{ID: uuid.New(), EventType: eventType, Payload: payload, CreatedAt: s.now()}
}

func parsedPayload(rec extract.Record, confidence float64) map[string]any {
	var due any
	if rec.DueDate != nil {
		due = rec.DueDate.Format("2006-01-02")
	}
	var paymentStatus any
	if rec.PaymentStatus != nil {
		paymentStatus = string(*rec.PaymentStatus)
	}
	return map[string]any{
		"vendor_name":    rec.VendorName,
		"total_amount":   rec.TotalAmount,
		"currency":       rec.Currency,
		"due_date":       due,
		"description":    deref(rec.Description),
		"asset_name":     deref(rec.AssetName),
		"status":         deref(rec.Status),
		"payment_status": paymentStatus,
		"reference":      deref(rec.Reference),
		"claim_links":    rec.ClaimLinks,
		"confidence":     confidence,
	}
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// decodeText reads bytes as UTF-8, dropping invalid sequences.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
