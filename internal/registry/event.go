package registry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RegisteredEvent is the decoded Registered log payload.
type RegisteredEvent struct {
	RegisteredAddress common.Address
	ID                *big.Int
	Owner             common.Address
	Time              *big.Int
}

// UnregisteredEvent is the decoded Unregistered log payload.
type UnregisteredEvent struct {
	RegisteredAddress common.Address
	ID                *big.Int
}

// MembershipEvent is either a RegisteredEvent or an UnregisteredEvent. The set is
// closed; use a type switch to get at the payload.
type MembershipEvent interface {
	EventName() string
	Subject() common.Address
	membershipEvent()
}

func (RegisteredEvent) EventName() string { return EventRegistered }

func (e RegisteredEvent) Subject() common.Address { return e.RegisteredAddress }

func (RegisteredEvent) membershipEvent() {}

func (UnregisteredEvent) EventName() string { return EventUnregistered }

func (e UnregisteredEvent) Subject() common.Address { return e.RegisteredAddress }

func (UnregisteredEvent) membershipEvent() {}

// LogMeta is where a log sits on the ledger.
type LogMeta struct {
	BlockNumber uint64
	BlockHash   common.Hash
	TxHash      common.Hash
	TxIndex     uint
	LogIndex    uint
	Address     common.Address
	Removed     bool
}

// LogKey identifies a log independently of its payload.
type LogKey struct {
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
}

// Key returns the (block, tx index, log index) identity of the log.
func (m LogMeta) Key() LogKey {
	return LogKey{BlockNumber: m.BlockNumber, TxIndex: m.TxIndex, LogIndex: m.LogIndex}
}

func metaFromLog(log types.Log) LogMeta {
	return LogMeta{
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     log.TxIndex,
		LogIndex:    log.Index,
		Address:     log.Address,
		Removed:     log.Removed,
	}
}

// EventLog is a decoded event together with its origin on the ledger.
type EventLog[T any] struct {
	Event T
	Log   LogMeta
}

// RegistryRecord is the current on-chain state for one registered address.
type RegistryRecord struct {
	RegisteredAddress common.Address
	Owner             common.Address
	Time              *big.Int
	ID                *big.Int
}
