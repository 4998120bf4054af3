package model

import (
	"encoding/json"
	"fmt"
	"math/big"

	"registryScope/internal/registry"
)

// EventRecord is the JSON line emitted for one membership event.
type EventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	TxIndex     uint64          `json:"tx_index"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Removed     bool            `json:"removed,omitempty"`
	Decoded     json.RawMessage `json:"decoded"`
}

// RegisteredEventData is the decoded Registered payload. Integers are decimal strings.
type RegisteredEventData struct {
	RegisteredAddress string `json:"registered_address"`
	ID                string `json:"id"`
	Owner             string `json:"owner"`
	Time              string `json:"time"`
}

// UnregisteredEventData is the decoded Unregistered payload.
type UnregisteredEventData struct {
	RegisteredAddress string `json:"registered_address"`
	ID                string `json:"id"`
}

// NewEventRecord flattens a timeline entry into an EventRecord.
func NewEventRecord(chainID uint64, entry registry.EventLog[registry.MembershipEvent]) (EventRecord, error) {
	var payload interface{}
	switch ev := entry.Event.(type) {
	case registry.RegisteredEvent:
		payload = RegisteredEventData{
			RegisteredAddress: ev.RegisteredAddress.Hex(),
			ID:                bigString(ev.ID),
			Owner:             ev.Owner.Hex(),
			Time:              bigString(ev.Time),
		}
	case registry.UnregisteredEvent:
		payload = UnregisteredEventData{
			RegisteredAddress: ev.RegisteredAddress.Hex(),
			ID:                bigString(ev.ID),
		}
	default:
		return EventRecord{}, fmt.Errorf("unsupported event %T", entry.Event)
	}

	decoded, err := json.Marshal(payload)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal %s: %w", entry.Event.EventName(), err)
	}

	meta := entry.Log
	return EventRecord{
		ChainID:     chainID,
		BlockNumber: meta.BlockNumber,
		BlockHash:   meta.BlockHash.Hex(),
		TxHash:      meta.TxHash.Hex(),
		TxIndex:     uint64(meta.TxIndex),
		LogIndex:    uint64(meta.LogIndex),
		Address:     meta.Address.Hex(),
		EventName:   entry.Event.EventName(),
		Removed:     meta.Removed,
		Decoded:     decoded,
	}, nil
}

// NewEventRecords converts a whole timeline, keeping its order.
func NewEventRecords(chainID uint64, timeline []registry.EventLog[registry.MembershipEvent]) ([]EventRecord, error) {
	out := make([]EventRecord, 0, len(timeline))
	for _, entry := range timeline {
		rec, err := NewEventRecord(chainID, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
