package reindex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingIndexer struct {
	mu     sync.Mutex
	calls  int
	batch  int
	err    error
	called chan struct{}
}

func (c *countingIndexer) Reindex(_ context.Context, batch int) (int, error) {
	c.mu.Lock()
	c.calls++
	c.batch = batch
	c.mu.Unlock()
	select {
	case c.called <- struct{}{}:
	default:
	}
	return 1, c.err
}

func (c *countingIndexer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWorker_RunsImmediatelyAndStops(t *testing.T) {
	idx := &countingIndexer{called: make(chan struct{}, 1)}
	w := NewWorker(idx, time.Hour, 25, discard())
	ctx, cancel := context.WithCancel(context.Background())

	w.Start(ctx)
	select {
	case <-idx.called:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not run on start")
	}
	cancel()
	w.Wait()

	assert.Equal(t, 1, idx.count())
	assert.Equal(t, 25, idx.batch)
}

func TestWorker_Ticks(t *testing.T) {
	idx := &countingIndexer{called: make(chan struct{}, 8)}
	w := NewWorker(idx, 10*time.Millisecond, 5, discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	assert.Eventually(t, func() bool { return idx.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()
}

func TestWorker_ErrorsDoNotStopLoop(t *testing.T) {
	idx := &countingIndexer{err: errors.New("db down"), called: make(chan struct{}, 8)}
	w := NewWorker(idx, 10*time.Millisecond, 5, discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	assert.Eventually(t, func() bool { return idx.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()
}
