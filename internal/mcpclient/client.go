// Package mcpclient provides an HTTP client for the Empire API,
// used by the MCP stdio server to forward tool calls.
package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/ingest"
	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

// Client is an HTTP client for the Empire API.
type Client struct {
	baseURL string
	apiKey  string
	agentID string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key sent via X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithAgentID sets the X-Agent-ID header used for logging and rate limits.
func WithAgentID(id string) Option {
	return func(c *Client) { c.agentID = id }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client. baseURL should be like "http://localhost:8600".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("empire api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("empire api: %d %s", e.Status, e.Message)
}

// apiEnvelope wraps Empire's standard response format.
type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// --- Methods ---

// IngestPurchase uploads a document for an LLC.
func (c *Client) IngestPurchase(ctx context.Context, llcName, filename string, content []byte) (*ingest.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("llc_name", llcName); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/ingest/purchase", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result ingest.Result
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchDocuments ranks stored documents against query.
func (c *Client) SearchDocuments(ctx context.Context, query string, limit int) ([]ingest.SearchResult, error) {
	q := url.Values{"query": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result []ingest.SearchResult
	if err := c.get(ctx, "/api/v1/search/documents?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSuggestions lists agent suggestions, newest first.
func (c *Client) ListSuggestions(ctx context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if pendingOnly {
		q.Set("pending", "true")
	}
	var result []rules.Suggestion
	if err := c.get(ctx, withQuery("/api/v1/agents/suggestions", q), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveSuggestion approves a suggestion and returns the audit event.
func (c *Client) ApproveSuggestion(ctx context.Context, id string) (*ingest.Approval, error) {
	var result ingest.Approval
	if err := c.post(ctx, "/api/v1/agents/suggestions/"+url.PathEscape(id)+"/approve", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListEvents lists events, newest first. An empty eventType lists all.
func (c *Client) ListEvents(ctx context.Context, eventType string, limit int) ([]store.Event, error) {
	q := url.Values{}
	if eventType != "" {
		q.Set("type", eventType)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result []store.Event
	if err := c.get(ctx, withQuery("/api/v1/events", q), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPurchaseOrders lists orders, newest first.
func (c *Client) ListPurchaseOrders(ctx context.Context, limit int) ([]store.PurchaseOrder, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result []store.PurchaseOrder
	if err := c.get(ctx, withQuery("/api/v1/purchase_orders", q), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EvaluateOrder re-runs the finance rules for an order.
func (c *Client) EvaluateOrder(ctx context.Context, id string) ([]rules.Suggestion, error) {
	var result []rules.Suggestion
	if err := c.post(ctx, "/api/v1/purchase_orders/"+url.PathEscape(id)+"/evaluate", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// --- HTTP helpers ---

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.agentID != "" {
		req.Header.Set("X-Agent-ID", c.agentID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}
		if decodeErr == nil && envelope.Error != nil {
			apiErr.Code, apiErr.Message = envelope.Error.Code, envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if decodeErr != nil || envelope.Data == nil {
		return fmt.Errorf("decode response: missing data envelope")
	}
	return json.Unmarshal(envelope.Data, out)
}
