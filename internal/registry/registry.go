package registry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ledger is the RPC surface the registry needs. chain.Client implements it.
type Ledger interface {
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
}

// Registry reads and writes one deployed registry contract. It keeps no state
// between calls.
type Registry struct {
	ledger   Ledger
	address  common.Address
	contract *Contract
	logger   *zap.Logger
}

// New builds a Registry for the contract deployed at address.
func New(ledger Ledger, address common.Address, contract *Contract, logger *zap.Logger) (*Registry, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if contract == nil {
		return nil, fmt.Errorf("contract interface is nil")
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("contract address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		ledger:   ledger,
		address:  address,
		contract: contract,
		logger:   logger.Named("registry").With(zap.String("contract", address.Hex())),
	}, nil
}

// Address returns the contract address.
func (r *Registry) Address() common.Address {
	return r.address
}

// GetRegisteredAndUnregistered returns the merged timeline for [from, to].
func (r *Registry) GetRegisteredAndUnregistered(ctx context.Context, from, to uint64) ([]EventLog[MembershipEvent], error) {
	return r.fetchTimeline(ctx, BlockNumber(from), BlockNumber(to))
}

// GetRegisteredAndUnregisteredFrom returns the merged timeline from a block to the tip.
func (r *Registry) GetRegisteredAndUnregisteredFrom(ctx context.Context, from uint64) ([]EventLog[MembershipEvent], error) {
	return r.fetchTimeline(ctx, BlockNumber(from), LatestBlock())
}

// fetchTimeline runs both event queries concurrently and merges once both are in.
// A failure in either discards the other result.
func (r *Registry) fetchTimeline(ctx context.Context, from, to BlockRef) ([]EventLog[MembershipEvent], error) {
	// Fail fast on bad input before starting either query.
	if _, err := r.BuildFilter(EventRegistered, from, to); err != nil {
		return nil, err
	}

	var (
		registered   []EventLog[RegisteredEvent]
		unregistered []EventLog[UnregisteredEvent]
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		registered, err = fetchEvents(groupCtx, r, EventRegistered, from, to, r.contract.DecodeRegistered)
		return err
	})
	group.Go(func() error {
		var err error
		unregistered, err = fetchEvents(groupCtx, r, EventUnregistered, from, to, r.contract.DecodeUnregistered)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return Merge(registered, unregistered), nil
}
