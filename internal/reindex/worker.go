// Package reindex backfills document fingerprints in the background.
package reindex

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Indexer fingerprints up to batch documents that lack a vector.
type Indexer interface {
	Reindex(ctx context.Context, batch int) (int, error)
}

// Worker periodically calls an Indexer until its context is cancelled.
type Worker struct {
	indexer   Indexer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewWorker creates a Worker.
func NewWorker(indexer Indexer, interval time.Duration, batchSize int, logger *slog.Logger) *Worker {
	return &Worker{
		indexer:   indexer,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start launches the loop in a goroutine. Wait blocks until it has exited.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("reindex worker starting", "interval", w.interval, "batch_size", w.batchSize)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runLoop(ctx)
	}()
}

// Wait blocks until the loop started by Start returns.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) runLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reindex worker shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	n, err := w.indexer.Reindex(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("reindex pass failed", "indexed", n, "error", err)
		}
		return
	}
	if n > 0 {
		w.logger.Info("reindexed documents", "count", n)
	}
}
