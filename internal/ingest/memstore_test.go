package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/media"
	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

// memStore is an in-memory Store. InTx restores the previous state when fn fails.
type memStore struct {
	mu sync.Mutex
	memState
	failCreateEvent bool
}

type memState struct {
	llcs        map[string]store.LLC
	vendors     map[string]store.Vendor
	media       map[uuid.UUID]store.MediaObject
	vectors     map[uuid.UUID]store.DocumentVector
	attempts    map[uuid.UUID]time.Time
	orders      map[uuid.UUID]store.PurchaseOrder
	assets      []store.Asset
	suggestions map[uuid.UUID]rules.Suggestion
	events      []store.Event
	seq         int
}

func newMemStore() *memStore {
	return &memStore{memState: memState{
		llcs:        map[string]store.LLC{},
		vendors:     map[string]store.Vendor{},
		media:       map[uuid.UUID]store.MediaObject{},
		vectors:     map[uuid.UUID]store.DocumentVector{},
		attempts:    map[uuid.UUID]time.Time{},
		orders:      map[uuid.UUID]store.PurchaseOrder{},
		suggestions: map[uuid.UUID]rules.Suggestion{},
	}}
}

func (m *memState) clone() memState {
	c := memState{
		llcs:        map[string]store.LLC{},
		vendors:     map[string]store.Vendor{},
		media:       map[uuid.UUID]store.MediaObject{},
		vectors:     map[uuid.UUID]store.DocumentVector{},
		attempts:    map[uuid.UUID]time.Time{},
		orders:      map[uuid.UUID]store.PurchaseOrder{},
		suggestions: map[uuid.UUID]rules.Suggestion{},
		assets:      append([]store.Asset(nil), m.assets...),
		events:      append([]store.Event(nil), m.events...),
		seq:         m.seq,
	}
	for k, v := range m.llcs {
		c.llcs[k] = v
	}
	for k, v := range m.vendors {
		c.vendors[k] = v
	}
	for k, v := range m.media {
		c.media[k] = v
	}
	for k, v := range m.vectors {
		c.vectors[k] = v
	}
	for k, v := range m.attempts {
		c.attempts[k] = v
	}
	for k, v := range m.orders {
		c.orders[k] = v
	}
	for k, v := range m.suggestions {
		c.suggestions[k] = v
	}
	return c
}

// tick returns strictly increasing timestamps so ordering by creation is stable.
func (m *memState) tick() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) InTx(_ context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	saved := m.clone()
	tx := &memTx{m}
	err := fn(tx)
	if err != nil {
		m.memState = saved
	}
	m.mu.Unlock()
	return err
}

// memTx is the repository handed to InTx callbacks; the store lock is already held.
type memTx struct{ m *memStore }

// Non-transactional calls take the lock themselves.
func (m *memStore) locked(fn func(r *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{m})
}

func (m *memStore) FindOrCreateLLC(ctx context.Context, name string) (l *store.LLC, err error) {
	err = m.locked(func(r *memTx) error { l, err = r.FindOrCreateLLC(ctx, name); return err })
	return
}
func (m *memStore) FindOrCreateVendor(ctx context.Context, name string) (v *store.Vendor, err error) {
	err = m.locked(func(r *memTx) error { v, err = r.FindOrCreateVendor(ctx, name); return err })
	return
}
func (m *memStore) CreateMediaObject(ctx context.Context, o *store.MediaObject) error {
	return m.locked(func(r *memTx) error { return r.CreateMediaObject(ctx, o) })
}
func (m *memStore) GetMediaObject(ctx context.Context, id uuid.UUID) (o *store.MediaObject, err error) {
	err = m.locked(func(r *memTx) error { o, err = r.GetMediaObject(ctx, id); return err })
	return
}
func (m *memStore) UpsertDocumentVector(ctx context.Context, v *store.DocumentVector) error {
	return m.locked(func(r *memTx) error { return r.UpsertDocumentVector(ctx, v) })
}
func (m *memStore) ListDocumentVectors(ctx context.Context, strategy string) (out []store.DocumentVector, err error) {
	err = m.locked(func(r *memTx) error { out, err = r.ListDocumentVectors(ctx, strategy); return err })
	return
}
func (m *memStore) MediaWithoutVectors(ctx context.Context, strategy string, limit int) (out []store.MediaObject, err error) {
	err = m.locked(func(r *memTx) error { out, err = r.MediaWithoutVectors(ctx, strategy, limit); return err })
	return
}
func (m *memStore) MarkReindexAttempt(ctx context.Context, id uuid.UUID) error {
	return m.locked(func(r *memTx) error { return r.MarkReindexAttempt(ctx, id) })
}
func (m *memStore) CreatePurchaseOrder(ctx context.Context, o *store.PurchaseOrder) error {
	return m.locked(func(r *memTx) error { return r.CreatePurchaseOrder(ctx, o) })
}
func (m *memStore) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (o *store.PurchaseOrder, err error) {
	err = m.locked(func(r *memTx) error { o, err = r.GetPurchaseOrder(ctx, id); return err })
	return
}
func (m *memStore) LockPurchaseOrder(ctx context.Context, id uuid.UUID) (*store.PurchaseOrder, error) {
	return m.GetPurchaseOrder(ctx, id)
}
func (m *memStore) BumpEvaluationVersion(ctx context.Context, id uuid.UUID, expected int64) (v int64, err error) {
	err = m.locked(func(r *memTx) error { v, err = r.BumpEvaluationVersion(ctx, id, expected); return err })
	return
}
func (m *memStore) ListPurchaseOrders(ctx context.Context, limit int) (out []store.PurchaseOrder, err error) {
	err = m.locked(func(r *memTx) error { out, err = r.ListPurchaseOrders(ctx, limit); return err })
	return
}
func (m *memStore) CountOpenVendorOrders(ctx context.Context, vendorID, exclude uuid.UUID) (n int, err error) {
	err = m.locked(func(r *memTx) error { n, err = r.CountOpenVendorOrders(ctx, vendorID, exclude); return err })
	return
}
func (m *memStore) CreateAsset(ctx context.Context, a *store.Asset) error {
	return m.locked(func(r *memTx) error { return r.CreateAsset(ctx, a) })
}
func (m *memStore) CreateSuggestion(ctx context.Context, s *rules.Suggestion) error {
	return m.locked(func(r *memTx) error { return r.CreateSuggestion(ctx, s) })
}
func (m *memStore) SuggestionTypes(ctx context.Context, orderID uuid.UUID) (out []string, err error) {
	err = m.locked(func(r *memTx) error { out, err = r.SuggestionTypes(ctx, orderID); return err })
	return
}
func (m *memStore) LockSuggestion(ctx context.Context, id uuid.UUID) (s *rules.Suggestion, err error) {
	err = m.locked(func(r *memTx) error { s, err = r.LockSuggestion(ctx, id); return err })
	return
}
func (m *memStore) MarkSuggestionApproved(ctx context.Context, s *rules.Suggestion) error {
	return m.locked(func(r *memTx) error { return r.MarkSuggestionApproved(ctx, s) })
}
func (m *memStore) ListSuggestions(ctx context.Context, limit int, pendingOnly bool) (out []rules.Suggestion, err error) {
	err = m.locked(func(r *memTx) error { out, err = r.ListSuggestions(ctx, limit, pendingOnly); return err })
	return
}
func (m *memStore) CreateEvent(ctx context.Context, e *store.Event) error {
	return m.locked(func(r *memTx) error { return r.CreateEvent(ctx, e) })
}
func (m *memStore) ListEvents(ctx context.Context, eventType *string, limit int) (out []store.Event, err error) {
	err = m.locked(func(r *memTx) error { out, err = r.ListEvents(ctx, eventType, limit); return err })
	return
}
func (m *memStore) Stats(ctx context.Context) (s *store.Stats, err error) {
	err = m.locked(func(r *memTx) error { s, err = r.Stats(ctx); return err })
	return
}

func (r *memTx) FindOrCreateLLC(_ context.Context, name string) (*store.LLC, error) {
	if l, ok := r.m.llcs[name]; ok {
		return &l, nil
	}
	l := store.LLC{ID: uuid.New(), Name: name, CreatedAt: r.m.tick()}
	r.m.llcs[name] = l
	return &l, nil
}

func (r *memTx) FindOrCreateVendor(_ context.Context, name string) (*store.Vendor, error) {
	if v, ok := r.m.vendors[name]; ok {
		return &v, nil
	}
	v := store.Vendor{ID: uuid.New(), Name: name, CreatedAt: r.m.tick()}
	r.m.vendors[name] = v
	return &v, nil
}

func (r *memTx) CreateMediaObject(_ context.Context, o *store.MediaObject) error {
	o.ID = uuid.New()
	o.CreatedAt = r.m.tick()
	r.m.media[o.ID] = *o
	return nil
}

func (r *memTx) GetMediaObject(_ context.Context, id uuid.UUID) (*store.MediaObject, error) {
	o, ok := r.m.media[id]
	if !ok {
		return nil, fmt.Errorf("media %s: %w", id, store.ErrNotFound)
	}
	return &o, nil
}

func (r *memTx) UpsertDocumentVector(_ context.Context, v *store.DocumentVector) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = r.m.tick()
	r.m.vectors[v.MediaObjectID] = *v
	return nil
}

func (r *memTx) ListDocumentVectors(_ context.Context, strategy string) ([]store.DocumentVector, error) {
	var out []store.DocumentVector
	for _, v := range r.m.vectors {
		if v.Strategy == strategy {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memTx) MediaWithoutVectors(_ context.Context, strategy string, limit int) ([]store.MediaObject, error) {
	var out []store.MediaObject
	for id, o := range r.m.media {
		if v, ok := r.m.vectors[id]; ok && v.Strategy == strategy {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, triedI := r.m.attempts[out[i].ID]
		aj, triedJ := r.m.attempts[out[j].ID]
		if triedI != triedJ {
			return !triedI
		}
		if triedI && !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTx) MarkReindexAttempt(_ context.Context, id uuid.UUID) error {
	if _, ok := r.m.media[id]; !ok {
		return store.ErrNotFound
	}
	r.m.attempts[id] = r.m.tick()
	return nil
}

func (r *memTx) CreatePurchaseOrder(_ context.Context, o *store.PurchaseOrder) error {
	o.ID = uuid.New()
	o.CreatedAt = r.m.tick()
	o.ReceivedAt = o.CreatedAt
	r.m.orders[o.ID] = *o
	return nil
}

func (r *memTx) GetPurchaseOrder(_ context.Context, id uuid.UUID) (*store.PurchaseOrder, error) {
	o, ok := r.m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	return &o, nil
}

func (r *memTx) LockPurchaseOrder(ctx context.Context, id uuid.UUID) (*store.PurchaseOrder, error) {
	return r.GetPurchaseOrder(ctx, id)
}

func (r *memTx) BumpEvaluationVersion(_ context.Context, id uuid.UUID, expected int64) (int64, error) {
	o, ok := r.m.orders[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	if o.EvaluationVersion != expected {
		return 0, store.ErrVersionConflict
	}
	o.EvaluationVersion++
	r.m.orders[id] = o
	return o.EvaluationVersion, nil
}

func (r *memTx) ListPurchaseOrders(_ context.Context, limit int) ([]store.PurchaseOrder, error) {
	out := make([]store.PurchaseOrder, 0, len(r.m.orders))
	for _, o := range r.m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTx) CountOpenVendorOrders(_ context.Context, vendorID, exclude uuid.UUID) (int, error) {
	n := 0
	for _, o := range r.m.orders {
		if o.VendorID == vendorID && o.ID != exclude && o.Status != "paid" {
			n++
		}
	}
	return n, nil
}

func (r *memTx) CreateAsset(_ context.Context, a *store.Asset) error {
	a.ID = uuid.New()
	a.CreatedAt = r.m.tick()
	r.m.assets = append(r.m.assets, *a)
	return nil
}

func (r *memTx) CreateSuggestion(_ context.Context, s *rules.Suggestion) error {
	for _, existing := range r.m.suggestions {
		if existing.PurchaseOrderID == s.PurchaseOrderID && existing.SuggestionType == s.SuggestionType {
			return errors.New("duplicate suggestion type")
		}
	}
	r.m.suggestions[s.ID] = *s
	return nil
}

func (r *memTx) SuggestionTypes(_ context.Context, orderID uuid.UUID) ([]string, error) {
	var out []string
	for _, s := range r.m.suggestions {
		if s.PurchaseOrderID == orderID {
			out = append(out, s.SuggestionType)
		}
	}
	return out, nil
}

func (r *memTx) LockSuggestion(_ context.Context, id uuid.UUID) (*rules.Suggestion, error) {
	s, ok := r.m.suggestions[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %s: %w", id, store.ErrNotFound)
	}
	return &s, nil
}

func (r *memTx) MarkSuggestionApproved(_ context.Context, s *rules.Suggestion) error {
	if _, ok := r.m.suggestions[s.ID]; !ok {
		return store.ErrNotFound
	}
	r.m.suggestions[s.ID] = *s
	return nil
}

func (r *memTx) ListSuggestions(_ context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error) {
	var out []rules.Suggestion
	for _, s := range r.m.suggestions {
		if pendingOnly && s.Approved {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTx) CreateEvent(_ context.Context, e *store.Event) error {
	if r.m.failCreateEvent {
		return errors.New("event insert failed")
	}
	r.m.events = append(r.m.events, *e)
	return nil
}

func (r *memTx) ListEvents(_ context.Context, eventType *string, limit int) ([]store.Event, error) {
	var out []store.Event
	for i := len(r.m.events) - 1; i >= 0; i-- {
		e := r.m.events[i]
		if eventType != nil && e.EventType != *eventType {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memTx) Stats(context.Context) (*store.Stats, error) {
	pending := 0
	for _, s := range r.m.suggestions {
		if !s.Approved {
			pending++
		}
	}
	return &store.Stats{
		LLCs:               len(r.m.llcs),
		Vendors:            len(r.m.vendors),
		PurchaseOrders:     len(r.m.orders),
		Documents:          len(r.m.media),
		PendingSuggestions: pending,
		Events:             len(r.m.events),
	}, nil
}

// memDocs is an in-memory Documents.
type memDocs struct {
	mu      sync.Mutex
	files   map[string][]byte
	readErr error
	n       int
}

func newMemDocs() *memDocs { return &memDocs{files: map[string][]byte{}} }

func (d *memDocs) Save(name string, data []byte) (media.Saved, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	path := fmt.Sprintf("mem/%d_%s", d.n, media.SanitizeName(name))
	d.files[path] = append([]byte(nil), data...)
	return media.Saved{Path: path, SHA256: fmt.Sprintf("%064d", d.n)}, nil
}

func (d *memDocs) Read(path string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return nil, d.readErr
	}
	data, ok := d.files[path]
	if !ok {
		return nil, fmt.Errorf("no file %s", path)
	}
	return data, nil
}

func (d *memDocs) Remove(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, path)
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []store.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e store.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}
