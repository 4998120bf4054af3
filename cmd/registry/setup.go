package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"registryScope/internal/chain"
	"registryScope/internal/config"
	"registryScope/internal/registry"
	"registryScope/internal/storage"
)

// session bundles what every command needs once flags are resolved.
type session struct {
	ctx      context.Context
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	registry *registry.Registry
	out      *storage.JsonlWriter

	closers []func()
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	contractAddr, err := config.ParseAddress("contract", cfg.Contract)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &session{
		ctx:     ctx,
		cfg:     cfg,
		logger:  logger,
		out:     storage.NewJsonlWriter(os.Stdout),
		closers: []func(){func() { _ = logger.Sync() }, stop},
	}

	contract, err := loadContract(cfg.ABIFile)
	if err != nil {
		s.Close()
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	s.client = client
	s.closers = append(s.closers, client.Close)

	reg, err := registry.New(client, contractAddr, contract, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.registry = reg

	return s, nil
}

// chainID reads the chain id the event records are stamped with.
func (s *session) chainID() (uint64, error) {
	id, err := s.client.GetChainID(s.ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	return id.Uint64(), nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func loadContract(path string) (*registry.Contract, error) {
	if path == "" {
		return registry.DefaultContract()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open abi file: %w", err)
	}
	defer f.Close()
	return registry.ParseContract(f)
}
