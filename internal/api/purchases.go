package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/empire/internal/ingest"
	"github.com/MikeSquared-Agency/empire/internal/middleware"
	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

// Purchases is the part of the pipeline the purchase endpoints drive.
type Purchases interface {
	Ingest(ctx context.Context, up ingest.Upload) (*ingest.Result, error)
	Evaluate(ctx context.Context, orderID string) ([]rules.Suggestion, error)
	ListPurchaseOrders(ctx context.Context, limit int) ([]store.PurchaseOrder, error)
}

// PurchaseHandler provides ingestion and purchase order endpoints.
type PurchaseHandler struct {
	svc      Purchases
	maxBytes int64
	logger   *slog.Logger
}

// NewPurchaseHandler creates a PurchaseHandler. Uploads larger than maxBytes
// are rejected.
func NewPurchaseHandler(svc Purchases, maxBytes int64, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, maxBytes: maxBytes, logger: logger}
}

// Ingest handles POST /ingest/purchase, a multipart form with llc_name and file.
func (h *PurchaseHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Upload exceeds size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Expected multipart form with llc_name and file")
		return
	}

	llcName := r.FormValue("llc_name")
	if llcName == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "llc_name is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read upload")
		return
	}

	res, err := h.svc.Ingest(r.Context(), ingest.Upload{
		LLCName:  llcName,
		Filename: header.Filename,
		Mime:     header.Header.Get("Content-Type"),
		Content:  content,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "purchase")
		return
	}

	h.logger.Info("purchase uploaded",
		"agent", middleware.AgentIDFromContext(r.Context()),
		"purchase_order_id", res.PurchaseOrder.ID,
		"bytes", len(content),
	)
	writeSuccess(w, http.StatusCreated, res)
}

// List handles GET /purchase_orders.
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
		return
	}
	orders, err := h.svc.ListPurchaseOrders(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "purchase orders")
		return
	}
	writeSuccess(w, http.StatusOK, orders)
}

// Evaluate handles POST /purchase_orders/{id}/evaluate.
func (h *PurchaseHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.Evaluate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "purchase order")
		return
	}
	writeSuccess(w, http.StatusOK, suggestions)
}
