// Package batch buffers expenses and hands them to a flusher in groups.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ArionMiles/fintrack/pkg/api"
)

// DefaultBatchSize is the default number of expenses to buffer before flushing.
const DefaultBatchSize = 50

// DefaultFlushInterval is the default interval between automatic flushes.
const DefaultFlushInterval = 10 * time.Second

// Flusher persists one batch. Ledger.Import satisfies it.
type Flusher func(ctx context.Context, expenses []api.Expense) error

// Config holds configuration for buffered writing.
type Config struct {
	// BatchSize is the number of expenses to buffer before flushing.
	// Defaults to DefaultBatchSize.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	// Defaults to DefaultFlushInterval.
	FlushInterval time.Duration
}

// Writer buffers expenses and flushes them in batches.
type Writer struct {
	buffer  []api.Expense
	mu      sync.Mutex
	flusher Flusher
	config  Config
	logger  *slog.Logger

	flushed int
	failed  int
}

// Stats counts what a Writer has flushed so far.
type Stats struct {
	Flushed int
	Failed  int
}

// New creates a buffered writer with the given flusher function.
func New(flusher Flusher, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		buffer:  make([]api.Expense, 0, cfg.BatchSize),
		flusher: flusher,
		config:  cfg,
		logger:  logger,
	}
}

// Write consumes expenses until in is closed or ctx is done, flushing on
// batch size, on interval and once more before returning. The first flush
// error stops the writer.
func (w *Writer) Write(ctx context.Context, in <-chan api.Expense) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.Debug("batch writer started",
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("batch writer stopping, flushing remaining buffer")
			if err := w.flush(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			if err := w.flush(ctx); err != nil {
				return err
			}
		case e, ok := <-in:
			if !ok {
				return w.flush(ctx)
			}
			if w.add(e) {
				if err := w.flush(ctx); err != nil {
					return err
				}
			}
		}
	}
}

func (w *Writer) add(e api.Expense) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, e)
	return len(w.buffer) >= w.config.BatchSize
}

// flush writes all buffered expenses using the flusher function.
func (w *Writer) flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	toFlush := make([]api.Expense, len(w.buffer))
	copy(toFlush, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	if err := w.flusher(ctx, toFlush); err != nil {
		w.mu.Lock()
		w.failed += len(toFlush)
		w.mu.Unlock()
		w.logger.Error("failed to flush batch", "count", len(toFlush), "error", err)
		return err
	}

	w.mu.Lock()
	w.flushed += len(toFlush)
	w.mu.Unlock()
	w.logger.Info("flushed expenses", "count", len(toFlush))
	return nil
}

// BufferLen returns the current number of buffered expenses.
func (w *Writer) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// Stats returns the flushed and failed counts.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{Flushed: w.flushed, Failed: w.failed}
}
