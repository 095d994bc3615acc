// Package main is the entry point for the Empire service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/api"
	"github.com/MikeSquared-Agency/empire/internal/config"
	"github.com/MikeSquared-Agency/empire/internal/embeddings"
	"github.com/MikeSquared-Agency/empire/internal/encryption"
	"github.com/MikeSquared-Agency/empire/internal/hermes"
	"github.com/MikeSquared-Agency/empire/internal/ingest"
	"github.com/MikeSquared-Agency/empire/internal/media"
	"github.com/MikeSquared-Agency/empire/internal/reindex"
	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/server"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "genkey" {
		key, err := encryption.GenerateKey()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(key.Encode())
		return
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database", "schema_version", store.LatestSchemaVersion())

	// Document storage, encrypted at rest when a key is configured
	var sealer media.Sealer
	if cfg.EncryptionKey != "" {
		enc, err := encryption.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			logger.Error("invalid media encryption key", "error", err)
			os.Exit(1)
		}
		sealer = enc
	} else {
		logger.Warn("no media encryption key configured, documents stored in plaintext")
	}
	docs, err := media.NewFileStore(cfg.MediaRoot, sealer)
	if err != nil {
		logger.Error("failed to open media root", "error", err)
		os.Exit(1)
	}

	embedder := embeddings.NewHashProvider()
	engine := rules.NewEngine(rules.WithLocation(cfg.RulesTimezone))

	// Hermes (NATS), optional; the service works without it
	var hermesClient *hermes.Client
	var publisher ingest.Publisher
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(cfg.NatsURL, logger)
		if err != nil {
			logger.Warn("failed to connect to Hermes (NATS), running without event bus", "error", err)
			hermesClient = nil
		} else {
			defer hermesClient.Close()
			publisher = hermes.NewPublisher(hermesClient, logger)
			logger.Info("connected to Hermes (NATS)", "url", cfg.NatsURL)
		}
	}

	svc := ingest.NewService(ingest.NewPostgresStore(db), docs, engine, embedder, publisher, logger)

	if hermesClient != nil {
		subscriber := hermes.NewSubscriber(hermesClient, svc, logger)
		if err := subscriber.Start(ctx); err != nil {
			logger.Warn("failed to start Hermes subscriber", "error", err)
		} else {
			defer subscriber.Stop()
		}
	}

	// Reindex worker (optional)
	var worker *reindex.Worker
	if cfg.ReindexEnabled {
		worker = reindex.NewWorker(svc, cfg.ReindexInterval, cfg.ReindexBatchSize, logger)
		worker.Start(ctx)
		logger.Info("reindex worker started", "strategy", embedder.Name(), "interval", cfg.ReindexInterval)
	}

	// Server
	var bus api.BusStatus
	if hermesClient != nil {
		bus = hermesClient
	}
	srv := server.New(cfg, svc, db, bus, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down gracefully...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("Empire starting", "port", cfg.Port, "media_root", cfg.MediaRoot, "rules_timezone", cfg.RulesTimezone.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	if worker != nil {
		worker.Wait()
	}
	logger.Info("Empire stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
