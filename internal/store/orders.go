package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PurchaseOrder is a parsed purchase document.
type PurchaseOrder struct {
	ID                uuid.UUID  `json:"id"`
	LLCID             uuid.UUID  `json:"llc_id"`
	VendorID          uuid.UUID  `json:"vendor_id"`
	VendorName        string     `json:"vendor_name"`
	MediaObjectID     uuid.UUID  `json:"media_object_id"`
	TotalAmount       float64    `json:"total_amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Reference         *string    `json:"reference,omitempty"`
	Confidence        float64    `json:"confidence"`
	EvaluationVersion int64      `json:"evaluation_version"`
	ReceivedAt        time.Time  `json:"received_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Asset is an item acquired through a purchase order.
type Asset struct {
	ID              uuid.UUID `json:"id"`
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

const orderSelect = `
	SELECT po.id, po.llc_id, po.vendor_id, v.name, po.media_object_id, po.total_amount, po.currency,
		po.status, po.due_date, po.description, po.reference, po.confidence, po.evaluation_version,
		po.received_at, po.created_at
	FROM purchase_orders po
	JOIN vendors v ON v.id = po.vendor_id`

func scanOrder(row interface{ Scan(...any) error }, o *PurchaseOrder) error {
	return row.Scan(&o.ID, &o.LLCID, &o.VendorID, &o.VendorName, &o.MediaObjectID, &o.TotalAmount,
		&o.Currency, &o.Status, &o.DueDate, &o.Description, &o.Reference, &o.Confidence,
		&o.EvaluationVersion, &o.ReceivedAt, &o.CreatedAt)
}

// CreatePurchaseOrder inserts o and fills its generated fields.
func (r *Repo) CreatePurchaseOrder(ctx context.Context, o *PurchaseOrder) error {
	if o.Status == "" {
		o.Status = "pending"
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO purchase_orders (llc_id, vendor_id, media_object_id, total_amount, currency, status,
			due_date, description, reference, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, evaluation_version, received_at, created_at
	`, o.LLCID, o.VendorID, o.MediaObjectID, o.TotalAmount, o.Currency, o.Status,
		o.DueDate, o.Description, o.Reference, o.Confidence).
		Scan(&o.ID, &o.EvaluationVersion, &o.ReceivedAt, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create purchase order: %w", err)
	}
	return nil
}

// GetPurchaseOrder fetches an order by id.
func (r *Repo) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	o := &PurchaseOrder{}
	if err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE po.id = $1`, id), o); err != nil {
		return nil, notFound(err, fmt.Sprintf("get purchase order %s", id))
	}
	return o, nil
}

// LockPurchaseOrder fetches an order and holds its row lock until the
// surrounding transaction ends. Outside a transaction the lock is released
// immediately.
func (r *Repo) LockPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	o := &PurchaseOrder{}
	if err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE po.id = $1 FOR UPDATE OF po`, id), o); err != nil {
		return nil, notFound(err, fmt.Sprintf("lock purchase order %s", id))
	}
	return o, nil
}

// BumpEvaluationVersion advances an order's evaluation version from expected to
// expected+1. It returns ErrVersionConflict if another evaluation got there first.
func (r *Repo) BumpEvaluationVersion(ctx context.Context, id uuid.UUID, expected int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchase_orders SET evaluation_version = evaluation_version + 1
		WHERE id = $1 AND evaluation_version = $2
	`, id, expected)
	if err != nil {
		return 0, fmt.Errorf("bump evaluation version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("order %s at version %d: %w", id, expected, ErrVersionConflict)
	}
	return expected + 1, nil
}

// ListPurchaseOrders returns the newest orders first.
func (r *Repo) ListPurchaseOrders(ctx context.Context, limit int) ([]PurchaseOrder, error) {
	rows, err := r.db.Query(ctx, orderSelect+` ORDER BY po.created_at DESC LIMIT $1`, clampLimit(limit, 100, 500))
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var out []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountOpenVendorOrders counts the vendor's orders that are not paid, excluding
// the order identified by exclude.
func (r *Repo) CountOpenVendorOrders(ctx context.Context, vendorID, exclude uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM purchase_orders
		WHERE vendor_id = $1 AND id <> $2 AND status <> 'paid'
	`, vendorID, exclude).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open vendor orders: %w", err)
	}
	return n, nil
}

// CreateAsset inserts a and fills its generated fields.
func (r *Repo) CreateAsset(ctx context.Context, a *Asset) error {
	if a.Status == "" {
		a.Status = "pending"
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO assets (purchase_order_id, name, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, a.PurchaseOrderID, a.Name, a.Status).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}
