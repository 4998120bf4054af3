package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"registryScope/internal/metrics"
	"registryScope/internal/registry"
)

// Source is the tail fetch the watcher polls. *registry.Registry implements it.
type Source interface {
	GetRegisteredAndUnregisteredFrom(ctx context.Context, from uint64) ([]registry.EventLog[registry.MembershipEvent], error)
}

// HeadReader reports the chain tip. *chain.Client implements it.
type HeadReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Handler receives each non-empty timeline in order. The cursor is saved only
// after the handler returns nil.
type Handler func(ctx context.Context, timeline []registry.EventLog[registry.MembershipEvent]) error

// Config holds runtime settings for the watcher.
type Config struct {
	// StartBlock is used when the store has no cursor yet.
	StartBlock   uint64
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// Once stops after the first successful poll.
	Once bool
}

// Watcher polls the registry from a persisted cursor.
type Watcher struct {
	cfg     Config
	source  Source
	store   CursorStore
	handler Handler
	head    HeadReader
	logger  *zap.Logger
}

// New builds a Watcher with its dependencies.
func New(cfg Config, source Source, store CursorStore, handler Handler, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = &MemoryCursorStore{}
	}
	return &Watcher{
		cfg:     cfg,
		source:  source,
		store:   store,
		handler: handler,
		logger:  logger.Named("watcher"),
	}
}

// WithHead makes the watcher report the chain head and cursor lag after each poll.
func (w *Watcher) WithHead(head HeadReader) *Watcher {
	w.head = head
	return w
}

// Run polls until ctx is cancelled, a non-retryable error occurs, or Once is set.
func (w *Watcher) Run(ctx context.Context) error {
	if w.source == nil {
		return fmt.Errorf("source is nil")
	}
	if w.handler == nil {
		return fmt.Errorf("handler is nil")
	}
	if !w.cfg.Once && w.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	cursor := Cursor{NextBlock: w.cfg.StartBlock}
	saved, ok, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if ok && saved.NextBlock > cursor.NextBlock {
		cursor = saved
		w.logger.Info("resume from cursor", zap.Uint64("next_block", cursor.NextBlock))
	}

	for {
		next, err := w.pollWithRetry(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		cursor = next

		if w.cfg.Once {
			return nil
		}

		timer := time.NewTimer(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Poll runs one tail fetch from cursor, hands the timeline to the handler and
// returns the advanced cursor. It does not save the cursor.
func (w *Watcher) Poll(ctx context.Context, cursor Cursor) (Cursor, int, error) {
	timeline, err := w.source.GetRegisteredAndUnregisteredFrom(ctx, cursor.NextBlock)
	if err != nil {
		return cursor, 0, err
	}
	if len(timeline) == 0 {
		return cursor, 0, nil
	}
	if err := w.handler(ctx, timeline); err != nil {
		return cursor, 0, fmt.Errorf("handle timeline: %w", err)
	}
	return cursor.Advance(timeline), len(timeline), nil
}

func (w *Watcher) pollWithRetry(ctx context.Context, cursor Cursor) (Cursor, error) {
	started := time.Now()
	next := cursor
	var count int
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, isRetryable, func(ctx context.Context) error {
		var err error
		next, count, err = w.Poll(ctx, cursor)
		if err != nil {
			w.logger.Warn("poll failed", zap.Uint64("from", cursor.NextBlock), zap.Error(err))
		}
		return err
	})
	metrics.PollDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return cursor, err
	}

	if next != cursor {
		if err := w.store.Save(ctx, next); err != nil {
			return cursor, fmt.Errorf("save cursor: %w", err)
		}
	}
	metrics.CursorBlock.Set(float64(next.NextBlock))

	fields := []zap.Field{
		zap.Uint64("from", cursor.NextBlock),
		zap.Uint64("next_block", next.NextBlock),
		zap.Int("events", count),
	}
	if head, ok := w.reportHead(ctx, next); ok {
		fields = append(fields, zap.Uint64("head", head), zap.Uint64("lag", Lag(head, next)))
	}
	w.logger.Info("poll complete", fields...)
	return next, nil
}

// reportHead reads the chain tip for metrics. A failure only costs the report.
func (w *Watcher) reportHead(ctx context.Context, cursor Cursor) (uint64, bool) {
	if w.head == nil {
		return 0, false
	}
	head, err := w.head.LatestBlockNumber(ctx)
	if err != nil {
		w.logger.Warn("read chain head failed", zap.Error(err))
		return 0, false
	}
	metrics.ChainHead.Set(float64(head))
	metrics.CursorLag.Set(float64(Lag(head, cursor)))
	return head, true
}

// Lag is the number of blocks up to head the cursor has not polled yet.
func Lag(head uint64, cursor Cursor) uint64 {
	if cursor.NextBlock > head {
		return 0
	}
	return head - cursor.NextBlock + 1
}

// Only transport failures are worth another attempt; decode errors and
// handler failures will fail the same way again.
func isRetryable(err error) bool {
	return errors.Is(err, registry.ErrLedgerUnavailable)
}
