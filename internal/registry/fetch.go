package registry

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"registryScope/internal/metrics"
)

// RegisteredInRange returns Registered events in [from, to] in ledger order.
func (r *Registry) RegisteredInRange(ctx context.Context, from, to uint64) ([]EventLog[RegisteredEvent], error) {
	return fetchEvents(ctx, r, EventRegistered, BlockNumber(from), BlockNumber(to), r.contract.DecodeRegistered)
}

// UnregisteredInRange returns Unregistered events in [from, to] in ledger order.
func (r *Registry) UnregisteredInRange(ctx context.Context, from, to uint64) ([]EventLog[UnregisteredEvent], error) {
	return fetchEvents(ctx, r, EventUnregistered, BlockNumber(from), BlockNumber(to), r.contract.DecodeUnregistered)
}

// RegisteredFrom returns Registered events from a block up to the chain tip.
// Callers that poll keep their own cursor and pass it in as from.
func (r *Registry) RegisteredFrom(ctx context.Context, from uint64) ([]EventLog[RegisteredEvent], error) {
	return fetchEvents(ctx, r, EventRegistered, BlockNumber(from), LatestBlock(), r.contract.DecodeRegistered)
}

// UnregisteredFrom returns Unregistered events from a block up to the chain tip.
func (r *Registry) UnregisteredFrom(ctx context.Context, from uint64) ([]EventLog[UnregisteredEvent], error) {
	return fetchEvents(ctx, r, EventUnregistered, BlockNumber(from), LatestBlock(), r.contract.DecodeUnregistered)
}

// FetchLogs runs the filter for eventName and returns the raw logs.
func (r *Registry) FetchLogs(ctx context.Context, eventName string, from, to BlockRef) ([]types.Log, error) {
	filter, err := r.BuildFilter(eventName, from, to)
	if err != nil {
		return nil, err
	}

	logs, err := r.ledger.FilterLogs(ctx, filter.Query())
	if err != nil {
		metrics.LedgerRequests.WithLabelValues("getLogs", metrics.OutcomeUnavailable).Inc()
		r.logger.Warn("filter logs failed",
			zap.String("event", eventName),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err),
		)
		return nil, classifyLogsError(eventName, err)
	}
	metrics.LedgerRequests.WithLabelValues("getLogs", metrics.OutcomeOK).Inc()
	return logs, nil
}

func fetchEvents[T any](
	ctx context.Context,
	r *Registry,
	eventName string,
	from, to BlockRef,
	decode func(types.Log) (EventLog[T], error),
) ([]EventLog[T], error) {
	logs, err := r.FetchLogs(ctx, eventName, from, to)
	if err != nil {
		return nil, err
	}

	events, err := decodeAll(logs, decode)
	if err != nil {
		metrics.LedgerRequests.WithLabelValues("decode", metrics.OutcomeDecodeError).Inc()
		r.logger.Error("decode logs failed", zap.String("event", eventName), zap.Error(err))
		return nil, err
	}

	metrics.EventsDecoded.WithLabelValues(eventName).Add(float64(len(events)))
	r.logger.Debug("fetched events",
		zap.String("event", eventName),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("count", len(events)),
	)
	return events, nil
}

// A log query has no revert semantics, so every failure is a transport failure.
func classifyLogsError(eventName string, err error) error {
	return fmt.Errorf("get %s logs: %w: %w", eventName, ErrLedgerUnavailable, err)
}
