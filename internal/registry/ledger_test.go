package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testContractAddress = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	errConnRefused      = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
)

// revertError mimics the JSON-RPC error geth returns for a reverted call.
type revertError struct {
	reason string
}

func (e *revertError) Error() string          { return "execution reverted: " + e.reason }
func (e *revertError) ErrorCode() int         { return 3 }
func (e *revertError) ErrorData() interface{} { return hexutil.Encode(packRevert(e.reason)) }

func packRevert(reason string) []byte {
	stringType, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return append(selector, packed...)
}

// memLedger is an in-memory registry contract plus its log history.
type memLedger struct {
	t        *testing.T
	contract *Contract

	mu          sync.Mutex
	head        uint64
	logs        []types.Log
	records     map[common.Address]RegistryRecord
	byID        map[string]common.Address
	numRecords  int64
	maxID       int64
	filterCalls int
	failTopics  map[common.Hash]error
	callErr     error
	// emptyCalls makes eth_call return no bytes, as for an address without code.
	emptyCalls  bool
}

func newMemLedger(t *testing.T) *memLedger {
	t.Helper()
	contract, err := DefaultContract()
	require.NoError(t, err)
	return &memLedger{
		t:          t,
		contract:   contract,
		head:       1,
		records:    make(map[common.Address]RegistryRecord),
		byID:       make(map[string]common.Address),
		failTopics: make(map[common.Hash]error),
	}
}

func newTestRegistry(t *testing.T, ledger *memLedger) *Registry {
	t.Helper()
	r, err := New(ledger, testContractAddress, ledger.contract, zap.NewNop())
	require.NoError(t, err)
	return r
}

func (l *memLedger) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filterCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, topics := range query.Topics {
		for _, topic := range topics {
			if err, ok := l.failTopics[topic]; ok {
				return nil, err
			}
		}
	}

	from := uint64(0)
	if query.FromBlock != nil {
		from = query.FromBlock.Uint64()
	}
	to := l.head
	if query.ToBlock != nil {
		to = query.ToBlock.Uint64()
	}

	out := make([]types.Log, 0)
	for _, log := range l.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if !matchesAddress(query.Addresses, log.Address) {
			continue
		}
		if len(query.Topics) > 0 && len(query.Topics[0]) > 0 && !containsHash(query.Topics[0], log.Topics[0]) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (l *memLedger) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.callErr != nil {
		return nil, l.callErr
	}
	if l.emptyCalls {
		return []byte{}, nil
	}

	method, args := l.unpackCall(msg.Data)
	parsed := l.contract.abi
	switch method.Name {
	case methodRecords:
		rec, ok := l.records[args[0].(common.Address)]
		if !ok {
			rec = RegistryRecord{Time: new(big.Int), ID: new(big.Int)}
		}
		return parsed.Methods[methodRecords].Outputs.Pack(rec.RegisteredAddress, rec.Owner, rec.Time, rec.ID)
	case methodWorkRegistered:
		return parsed.Methods[methodWorkRegistered].Outputs.Pack(l.byID[args[0].(*big.Int).String()])
	case methodNumRecords:
		return parsed.Methods[methodNumRecords].Outputs.Pack(big.NewInt(l.numRecords))
	case methodMaxID:
		return parsed.Methods[methodMaxID].Outputs.Pack(big.NewInt(l.maxID))
	case methodRegister, methodUnregister:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown method %s", method.Name)
	}
}

func (l *memLedger) SendTransaction(_ context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.callErr != nil {
		return common.Hash{}, l.callErr
	}

	method, args := l.unpackCall(msg.Data)
	target := args[0].(common.Address)
	switch method.Name {
	case methodRegister:
		if _, ok := l.records[target]; ok {
			return common.Hash{}, &revertError{reason: "already registered"}
		}
		l.maxID++
		l.numRecords++
		rec := RegistryRecord{
			RegisteredAddress: target,
			Owner:             msg.From,
			Time:              big.NewInt(int64(1700000000 + l.head)),
			ID:                big.NewInt(l.maxID),
		}
		l.records[target] = rec
		l.byID[rec.ID.String()] = target
		l.head++
		l.logs = append(l.logs, registeredLog(l.t, l.contract, rec.RegisteredAddress, rec.ID, rec.Owner, rec.Time, l.head, 0, 0))
	case methodUnregister:
		rec, ok := l.records[target]
		if !ok {
			return common.Hash{}, &revertError{reason: "not registered"}
		}
		delete(l.records, target)
		delete(l.byID, rec.ID.String())
		l.numRecords--
		l.head++
		l.logs = append(l.logs, unregisteredLog(l.t, l.contract, target, rec.ID, l.head, 0, 0))
	default:
		return common.Hash{}, fmt.Errorf("unknown method %s", method.Name)
	}
	return common.BigToHash(new(big.Int).SetUint64(l.head)), nil
}

func (l *memLedger) unpackCall(data []byte) (*abi.Method, []interface{}) {
	method, err := l.contract.abi.MethodById(data[:4])
	require.NoError(l.t, err)
	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(l.t, err)
	return method, args
}

// addLogs appends raw logs and moves the head past them.
func (l *memLedger) addLogs(logs ...types.Log) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, log := range logs {
		l.logs = append(l.logs, log)
		if log.BlockNumber > l.head {
			l.head = log.BlockNumber
		}
	}
}

func (l *memLedger) failTopic(eventName string, err error) {
	topic, _ := l.contract.Topic(eventName)
	l.mu.Lock()
	l.failTopics[topic] = err
	l.mu.Unlock()
}

func (l *memLedger) filterCallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filterCalls
}

func matchesAddress(addresses []common.Address, address common.Address) bool {
	if len(addresses) == 0 {
		return true
	}
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}

func containsHash(hashes []common.Hash, h common.Hash) bool {
	for _, candidate := range hashes {
		if candidate == h {
			return true
		}
	}
	return false
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func registeredLog(t *testing.T, contract *Contract, addr common.Address, id *big.Int, owner common.Address, ts *big.Int, block uint64, txIndex, logIndex uint) types.Log {
	t.Helper()
	event := contract.abi.Events[EventRegistered]
	data, err := event.Inputs.NonIndexed().Pack(ts)
	require.NoError(t, err)
	return types.Log{
		Address:     testContractAddress,
		Topics:      []common.Hash{event.ID, addressTopic(addr), common.BigToHash(id), addressTopic(owner)},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(txIndex))),
		TxIndex:     txIndex,
		Index:       logIndex,
	}
}

func unregisteredLog(t *testing.T, contract *Contract, addr common.Address, id *big.Int, block uint64, txIndex, logIndex uint) types.Log {
	t.Helper()
	event := contract.abi.Events[EventUnregistered]
	return types.Log{
		Address:     testContractAddress,
		Topics:      []common.Hash{event.ID, addressTopic(addr), common.BigToHash(id)},
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(txIndex))),
		TxIndex:     txIndex,
		Index:       logIndex,
	}
}
