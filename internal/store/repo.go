package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repo runs queries against a pool or a transaction.
type Repo struct {
	db DBTX
}

// NewRepo binds a repository to db.
func NewRepo(db DBTX) *Repo {
	return &Repo{db: db}
}

// LLC is a legal entity that receives purchases.
type LLC struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	EIN       *string   `json:"ein,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Vendor is a supplier named on a purchase document.
type Vendor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FindOrCreateLLC returns the LLC called name, inserting it if missing.
func (r *Repo) FindOrCreateLLC(ctx context.Context, name string) (*LLC, error) {
	l := &LLC{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO llcs (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, ein, created_at
	`, name).Scan(&l.ID, &l.Name, &l.EIN, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create llc %q: %w", name, err)
	}
	return l, nil
}

// FindOrCreateVendor returns the vendor called name, inserting it if missing.
func (r *Repo) FindOrCreateVendor(ctx context.Context, name string) (*Vendor, error) {
	v := &Vendor{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO vendors (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`, name).Scan(&v.ID, &v.Name, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create vendor %q: %w", name, err)
	}
	return v, nil
}

// Stats summarizes row counts for the dashboard.
type Stats struct {
	LLCs               int `json:"llcs"`
	Vendors            int `json:"vendors"`
	PurchaseOrders     int `json:"purchase_orders"`
	Documents          int `json:"documents"`
	PendingSuggestions int `json:"pending_suggestions"`
	Events             int `json:"events"`
}

// Stats counts rows in the main tables.
func (r *Repo) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM llcs),
			(SELECT count(*) FROM vendors),
			(SELECT count(*) FROM purchase_orders),
			(SELECT count(*) FROM media_objects),
			(SELECT count(*) FROM agent_suggestions WHERE NOT approved),
			(SELECT count(*) FROM events)
	`).Scan(&s.LLCs, &s.Vendors, &s.PurchaseOrders, &s.Documents, &s.PendingSuggestions, &s.Events)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
