package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DecodeRegistered decodes a Registered log.
func (c *Contract) DecodeRegistered(log types.Log) (EventLog[RegisteredEvent], error) {
	event := c.abi.Events[EventRegistered]
	if err := checkTopics(event, log); err != nil {
		return EventLog[RegisteredEvent]{}, err
	}

	var indexed struct {
		RegisteredAddress common.Address
		Id                *big.Int
		Owner             common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return EventLog[RegisteredEvent]{}, decodeErr(event, log, fmt.Errorf("parse topics: %w", err))
	}

	nonIndexed := event.Inputs.NonIndexed()
	if want := 32 * len(nonIndexed); len(log.Data) != want {
		return EventLog[RegisteredEvent]{}, decodeErr(event, log, fmt.Errorf("data length %d, want %d", len(log.Data), want))
	}
	values, err := nonIndexed.Unpack(log.Data)
	if err != nil {
		return EventLog[RegisteredEvent]{}, decodeErr(event, log, fmt.Errorf("unpack data: %w", err))
	}
	if len(values) != 1 {
		return EventLog[RegisteredEvent]{}, decodeErr(event, log, fmt.Errorf("unexpected values: %d", len(values)))
	}
	ts, err := asBigInt(values[0])
	if err != nil {
		return EventLog[RegisteredEvent]{}, decodeErr(event, log, err)
	}

	return EventLog[RegisteredEvent]{
		Event: RegisteredEvent{
			RegisteredAddress: indexed.RegisteredAddress,
			ID:                indexed.Id,
			Owner:             indexed.Owner,
			Time:              ts,
		},
		Log: metaFromLog(log),
	}, nil
}

// DecodeUnregistered decodes an Unregistered log.
func (c *Contract) DecodeUnregistered(log types.Log) (EventLog[UnregisteredEvent], error) {
	event := c.abi.Events[EventUnregistered]
	if err := checkTopics(event, log); err != nil {
		return EventLog[UnregisteredEvent]{}, err
	}

	var indexed struct {
		RegisteredAddress common.Address
		Id                *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return EventLog[UnregisteredEvent]{}, decodeErr(event, log, fmt.Errorf("parse topics: %w", err))
	}
	if len(log.Data) != 0 {
		return EventLog[UnregisteredEvent]{}, decodeErr(event, log, fmt.Errorf("unexpected data length %d", len(log.Data)))
	}

	return EventLog[UnregisteredEvent]{
		Event: UnregisteredEvent{
			RegisteredAddress: indexed.RegisteredAddress,
			ID:                indexed.Id,
		},
		Log: metaFromLog(log),
	}, nil
}

func checkTopics(event abi.Event, log types.Log) error {
	if len(log.Topics) == 0 {
		return decodeErr(event, log, fmt.Errorf("missing topics"))
	}
	if log.Topics[0] != event.ID {
		return decodeErr(event, log, fmt.Errorf("topic0 %s does not match %s", log.Topics[0].Hex(), event.ID.Hex()))
	}
	indexedCount := len(indexedArguments(event.Inputs))
	if len(log.Topics) != indexedCount+1 {
		return decodeErr(event, log, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(log.Topics)))
	}
	return nil
}

func decodeErr(event abi.Event, log types.Log, err error) error {
	return fmt.Errorf("%w: %s at block %d tx %s log %d: %w",
		ErrDecode, event.Name, log.BlockNumber, log.TxHash.Hex(), log.Index, err)
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func decodeAll[T any](logs []types.Log, decode func(types.Log) (EventLog[T], error)) ([]EventLog[T], error) {
	out := make([]EventLog[T], 0, len(logs))
	for _, log := range logs {
		event, err := decode(log)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}
