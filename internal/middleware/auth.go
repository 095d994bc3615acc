// Package middleware provides HTTP middleware for Empire.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// contextKey is a private type for context keys.
type contextKey string

const agentIDKey contextKey = "agent_id"

// AnonymousAgent is the caller identity when no X-Agent-ID header is sent.
const AnonymousAgent = "anonymous"

// AgentIDFromContext extracts the agent ID from the request context.
func AgentIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(agentIDKey).(string); ok {
		return v
	}
	return ""
}

// AgentAuth reads the caller identity from X-Agent-ID and stores it in the
// request context. The header is trusted; the API key guards writes.
func AgentAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID := strings.TrimSpace(r.Header.Get("X-Agent-ID"))
		if agentID == "" {
			agentID = AnonymousAgent
		}
		ctx := context.WithValue(r.Context(), agentIDKey, agentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// APIKeyAuth requires X-API-Key (or a Bearer token) on mutating requests.
// Safe methods and the health endpoint pass through. An empty key disables it.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || strings.HasSuffix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("X-API-Key")
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
