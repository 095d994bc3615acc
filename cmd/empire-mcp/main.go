// Package main implements the Empire MCP stdio server.
// It reads JSON-RPC requests from stdin and writes responses to stdout,
// forwarding tool calls to the Empire HTTP API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MikeSquared-Agency/empire/internal/mcpclient"
)

// --- JSON-RPC types ---

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- MCP types ---

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools *toolsCap `json:"tools,omitempty"`
}

type toolsCap struct{}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolsListResult struct {
	Tools []toolDef `json:"tools"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// --- Main ---

func main() {
	baseURL := os.Getenv("EMPIRE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8600"
	}

	client := mcpclient.New(baseURL,
		mcpclient.WithAPIKey(os.Getenv("EMPIRE_API_KEY")),
		mcpclient.WithAgentID("empire-mcp"),
	)

	if err := serve(context.Background(), client, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve answers one JSON-RPC request per input line until in is exhausted.
func serve(ctx context.Context, client *mcpclient.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	write := func(resp jsonrpcResponse) {
		resp.JSONRPC = "2.0"
		data, _ := json.Marshal(resp)
		fmt.Fprintf(out, "%s\n", data)
		if f, ok := out.(*os.File); ok {
			_ = f.Sync()
		}
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonrpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			write(jsonrpcResponse{Error: &rpcError{Code: -32700, Message: "Parse error"}})
			continue
		}

		// Notifications carry no ID and get no response.
		if req.ID == nil {
			continue
		}

		switch req.Method {
		case "initialize":
			write(jsonrpcResponse{
				ID: req.ID,
				Result: initializeResult{
					ProtocolVersion: "2025-11-25",
					Capabilities:    capabilities{Tools: &toolsCap{}},
					ServerInfo:      serverInfo{Name: "empire", Version: "0.1.0"},
				},
			})

		case "tools/list":
			write(jsonrpcResponse{ID: req.ID, Result: toolsListResult{Tools: tools}})

		case "tools/call":
			var params toolCallParams
			if err := json.Unmarshal(req.Params, &params); err != nil {
				write(jsonrpcResponse{ID: req.ID, Error: &rpcError{Code: -32602, Message: "Invalid params"}})
				continue
			}
			write(jsonrpcResponse{ID: req.ID, Result: handleToolCall(ctx, client, params)})

		default:
			write(jsonrpcResponse{
				ID:    req.ID,
				Error: &rpcError{Code: -32601, Message: fmt.Sprintf("Method not found: %s", req.Method)},
			})
		}
	}
	return scanner.Err()
}
