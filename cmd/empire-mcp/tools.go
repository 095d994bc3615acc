package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/empire/internal/mcpclient"
)

type toolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type toolCallResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var tools = []toolDef{
	{
		Name:        "empire_ingest_purchase",
		Description: "Ingest a purchase order or invoice as plain text for an LLC. Returns the parsed order, its confidence, events and any finance suggestions.",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"llc_name": {"type": "string", "description": "Name of the LLC that received the purchase"},
				"filename": {"type": "string", "description": "Original file name (default purchase.txt)"},
				"content":  {"type": "string", "description": "Document text"}
			},
			"required": ["llc_name", "content"]
		}`),
	},
	{
		Name:        "empire_search_documents",
		Description: "Rank stored purchase documents by similarity to a free-text query.",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Free text, e.g. a vendor or item name"},
				"limit": {"type": "integer", "description": "Max results (default 10)"}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        "empire_list_suggestions",
		Description: "List FinanceAgent suggestions, newest first.",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"pending_only": {"type": "boolean", "description": "Only unapproved suggestions"},
				"limit":        {"type": "integer", "description": "Max results (default 50)"}
			}
		}`),
	},
	{
		Name:        "empire_approve_suggestion",
		Description: "Approve a suggestion. Records a suggestion.approved event. Fails if already approved.",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"suggestion_id": {"type": "string", "description": "UUID of the suggestion"}
			},
			"required": ["suggestion_id"]
		}`),
	},
	{
		Name:        "empire_list_events",
		Description: "List pipeline events, newest first, optionally filtered by type (e.g. purchase_order.created).",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"event_type": {"type": "string", "description": "Filter by event type. Omit to list all."},
				"limit":      {"type": "integer", "description": "Max results (default 50)"}
			}
		}`),
	},
	{
		Name:        "empire_list_purchase_orders",
		Description: "List purchase orders, newest first.",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "description": "Max results (default 50)"}
			}
		}`),
	},
	{
		Name:        "empire_evaluate_order",
		Description: "Re-run the finance rules for a purchase order. Returns only suggestions not already recorded.",
		InputSchema: mustJSON(`{
			"type": "object",
			"properties": {
				"purchase_order_id": {"type": "string", "description": "UUID of the purchase order"}
			},
			"required": ["purchase_order_id"]
		}`),
	},
}

func mustJSON(s string) json.RawMessage {
	var v json.RawMessage
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(fmt.Sprintf("invalid JSON in tool schema: %v", err))
	}
	return v
}

func handleToolCall(ctx context.Context, client *mcpclient.Client, params toolCallParams) toolCallResult {
	switch params.Name {
	case "empire_ingest_purchase":
		return handleIngest(ctx, client, params.Arguments)
	case "empire_search_documents":
		return handleSearch(ctx, client, params.Arguments)
	case "empire_list_suggestions":
		return handleListSuggestions(ctx, client, params.Arguments)
	case "empire_approve_suggestion":
		return handleApprove(ctx, client, params.Arguments)
	case "empire_list_events":
		return handleListEvents(ctx, client, params.Arguments)
	case "empire_list_purchase_orders":
		return handleListOrders(ctx, client, params.Arguments)
	case "empire_evaluate_order":
		return handleEvaluate(ctx, client, params.Arguments)
	default:
		return errorResult(fmt.Sprintf("Unknown tool: %s", params.Name))
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

func handleIngest(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		LLCName  string `json:"llc_name"`
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if params.LLCName == "" || params.Content == "" {
		return errorResult("llc_name and content are required")
	}
	if params.Filename == "" {
		params.Filename = "purchase.txt"
	}
	result, err := client.IngestPurchase(ctx, params.LLCName, params.Filename, []byte(params.Content))
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(result)
}

func handleSearch(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if params.Query == "" {
		return errorResult("query is required")
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}
	result, err := client.SearchDocuments(ctx, params.Query, params.Limit)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(result) == 0 {
		return textResult("No matching documents.")
	}
	return jsonResult(result)
}

func handleListSuggestions(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		PendingOnly bool `json:"pending_only"`
		Limit       int  `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	result, err := client.ListSuggestions(ctx, params.Limit, params.PendingOnly)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(result) == 0 {
		return textResult("No suggestions.")
	}
	return jsonResult(result)
}

func handleApprove(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		SuggestionID string `json:"suggestion_id"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	result, err := client.ApproveSuggestion(ctx, params.SuggestionID)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(result)
}

func handleListEvents(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		EventType string `json:"event_type"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	result, err := client.ListEvents(ctx, params.EventType, params.Limit)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(result)
}

func handleListOrders(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		Limit int `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	result, err := client.ListPurchaseOrders(ctx, params.Limit)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(result)
}

func handleEvaluate(ctx context.Context, client *mcpclient.Client, args json.RawMessage) toolCallResult {
	var params struct {
		PurchaseOrderID string `json:"purchase_order_id"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	result, err := client.EvaluateOrder(ctx, params.PurchaseOrderID)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(result) == 0 {
		return textResult("No new suggestions.")
	}
	return jsonResult(result)
}

// --- Helpers ---

func jsonResult(v any) toolCallResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return toolCallResult{
		Content: []contentBlock{{Type: "text", Text: string(data)}},
	}
}

func textResult(text string) toolCallResult {
	return toolCallResult{
		Content: []contentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(msg string) toolCallResult {
	return toolCallResult{
		Content: []contentBlock{{Type: "text", Text: msg}},
		IsError: true,
	}
}
