package redis

import (
	"context"
	"errors"
	"log"
	"sync"

	"signal-enginev1/internal/model"
)

// GuardedWriter wraps a SignalWriter with a circuit breaker. While the
// breaker is open, batches are held in a bounded local buffer and written
// ahead of the next batch once a call succeeds again.
type GuardedWriter struct {
	writer model.SignalWriter
	cb     *CircuitBreaker

	mu      sync.Mutex
	pending [][]model.SignalResult
	maxBuf  int // batches; oldest dropped when full

	OnBuffer func() // called when a batch is buffered
	OnDrop   func() // called when a buffered batch is dropped
}

// NewGuardedWriter creates a GuardedWriter holding at most maxBatches batches.
func NewGuardedWriter(w model.SignalWriter, cb *CircuitBreaker, maxBatches int) *GuardedWriter {
	if maxBatches <= 0 {
		maxBatches = 1000
	}
	return &GuardedWriter{writer: w, cb: cb, maxBuf: maxBatches}
}

// WriteSignalBatch writes any buffered batches and then results. A batch
// rejected or failed by the breaker is buffered rather than lost and
// nil is returned; the error is logged.
func (g *GuardedWriter) WriteSignalBatch(ctx context.Context, results []model.SignalResult) error {
	if len(results) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(g.pending, results)

	for len(g.pending) > 0 {
		batch := g.pending[0]
		err := g.cb.Do(func() error { return g.writer.WriteSignalBatch(ctx, batch) })
		if err != nil {
			if !errors.Is(err, ErrCircuitOpen) {
				log.Printf("[guarded-writer] write failed, buffering: %v", err)
			}
			g.trim()
			if g.OnBuffer != nil {
				g.OnBuffer()
			}
			return nil
		}
		g.pending = g.pending[1:]
	}
	return nil
}

func (g *GuardedWriter) trim() {
	for len(g.pending) > g.maxBuf {
		g.pending = g.pending[1:]
		if g.OnDrop != nil {
			g.OnDrop()
		}
	}
}

// PendingCount returns the number of buffered batches.
func (g *GuardedWriter) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Close closes the underlying writer. Buffered batches are discarded.
func (g *GuardedWriter) Close() error {
	g.mu.Lock()
	if n := len(g.pending); n > 0 {
		log.Printf("[guarded-writer] discarding %d buffered batches on close", n)
	}
	g.pending = nil
	g.mu.Unlock()
	return g.writer.Close()
}
