package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"registryScope/internal/model"
	"registryScope/internal/registry"
	"registryScope/internal/storage"
	"registryScope/internal/watcher"
)

func runEvents(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	chainID, err := s.chainID()
	if err != nil {
		return err
	}
	emit := timelineEmitter(chainID, s.out)

	cfg := s.cfg
	s.logger.Info("events start",
		zap.String("contract", s.registry.Address().Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Bool("to_latest", cfg.ToLatest),
		zap.Uint64("chunk_size", cfg.ChunkSize),
	)

	if cfg.ToLatest {
		timeline, err := s.registry.GetRegisteredAndUnregisteredFrom(s.ctx, cfg.FromBlock)
		if err != nil {
			return err
		}
		s.logger.Info("events done", zap.Int("events", len(timeline)))
		return emit(s.ctx, timeline)
	}

	chunks, err := watcher.SplitRange(cfg.FromBlock, cfg.ToBlock, cfg.ChunkSize)
	if err != nil {
		return err
	}

	total := 0
	for _, chunk := range chunks {
		timeline, err := s.registry.GetRegisteredAndUnregistered(s.ctx, chunk.From, chunk.To)
		if err != nil {
			return fmt.Errorf("blocks %d-%d: %w", chunk.From, chunk.To, err)
		}
		if err := emit(s.ctx, timeline); err != nil {
			return err
		}
		total += len(timeline)
		s.logger.Debug("chunk done",
			zap.Uint64("from", chunk.From),
			zap.Uint64("to", chunk.To),
			zap.Int("events", len(timeline)),
		)
	}

	s.logger.Info("events done", zap.Int("events", total), zap.Int("chunks", len(chunks)))
	return nil
}

// timelineEmitter returns a watcher.Handler that writes each entry as a JSON line.
func timelineEmitter(chainID uint64, sink storage.EventSink) watcher.Handler {
	return func(_ context.Context, timeline []registry.EventLog[registry.MembershipEvent]) error {
		records, err := model.NewEventRecords(chainID, timeline)
		if err != nil {
			return err
		}
		return sink.PutEventBatch(records)
	}
}
