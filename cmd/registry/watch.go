package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"registryScope/internal/metrics"
	"registryScope/internal/storage/postgres"
	"registryScope/internal/watcher"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := s.cfg
	if !cfg.Once && cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	chainID, err := s.chainID()
	if err != nil {
		return err
	}

	var cursorStore watcher.CursorStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(s.ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(s.ctx); err != nil {
			return err
		}
		cursorStore = &watcher.DBCursorStore{Store: store, Name: cfg.CursorName}
	} else if cfg.Cursor != "" {
		cursorStore = watcher.NewFileCursorStore(cfg.Cursor)
	}

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, s.logger)
		defer shutdown()
	}

	w := watcher.New(watcher.Config{
		StartBlock:   cfg.FromBlock,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Once:         cfg.Once,
	}, s.registry, cursorStore, timelineEmitter(chainID, s.out), s.logger).WithHead(s.client)

	s.logger.Info("watch start",
		zap.String("contract", s.registry.Address().Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("once", cfg.Once),
		zap.Bool("postgres_cursor", cfg.PGDSN != ""),
		zap.String("cursor", cfg.Cursor),
	)

	err = w.Run(s.ctx)
	if errors.Is(err, context.Canceled) {
		s.logger.Info("watch stopped")
		return nil
	}
	return err
}

func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
