// Package config provides environment-based configuration for Empire.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Empire service.
type Config struct {
	// Server
	Port           int
	LogLevel       string
	MaxUploadBytes int64
	CORSOrigins    []string
	APIKey         string // empty disables the write guard

	// Database (PostgreSQL with pgvector)
	DatabaseURL string

	// NATS / Hermes
	NatsURL string

	// Document storage
	MediaRoot         string
	EncryptionKeyPath string
	EncryptionKey     string // loaded from file or env; empty stores plaintext

	// Rules
	RulesTimezone *time.Location

	// Rate limiting
	IngestRateLimit int // requests per minute
	SearchRateLimit int // requests per minute
	RateWindow      time.Duration

	// Background reindex
	ReindexEnabled   bool
	ReindexInterval  time.Duration
	ReindexBatchSize int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	c := &Config{
		Port:              envInt("EMPIRE_PORT", 8600),
		LogLevel:          envStr("EMPIRE_LOG_LEVEL", "info"),
		MaxUploadBytes:    int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		CORSOrigins:       envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		APIKey:            envStr("EMPIRE_API_KEY", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		NatsURL:           envStr("NATS_URL", "nats://localhost:4222"),
		MediaRoot:         envStr("MEDIA_ROOT", "./storage"),
		EncryptionKeyPath: envStr("MEDIA_ENCRYPTION_KEY_PATH", ""),
		EncryptionKey:     envStr("MEDIA_ENCRYPTION_KEY", ""),
		IngestRateLimit:   envInt("INGEST_RATE_LIMIT", 60),
		SearchRateLimit:   envInt("SEARCH_RATE_LIMIT", 120),
		RateWindow:        time.Minute,
		ReindexEnabled:    envBool("REINDEX_ENABLED", false),
		ReindexInterval:   envDuration("REINDEX_INTERVAL", 5*time.Minute),
		ReindexBatchSize:  envInt("REINDEX_BATCH_SIZE", 100),
	}

	tz := envStr("RULES_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("RULES_TIMEZONE %q: %w", tz, err)
	}
	c.RulesTimezone = loc

	if c.EncryptionKey == "" && c.EncryptionKeyPath != "" {
		data, err := os.ReadFile(c.EncryptionKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading MEDIA_ENCRYPTION_KEY_PATH: %w", err)
		}
		c.EncryptionKey = strings.TrimSpace(string(data))
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if c.ReindexInterval <= 0 {
		return nil, fmt.Errorf("REINDEX_INTERVAL must be positive")
	}

	return c, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
