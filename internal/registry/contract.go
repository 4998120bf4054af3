package registry

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Event names emitted by the registry contract.
const (
	EventRegistered   = "Registered"
	EventUnregistered = "Unregistered"
)

const (
	methodRegister       = "register"
	methodUnregister     = "unregister"
	methodRecords        = "records"
	methodWorkRegistered = "workRegistered"
	methodNumRecords     = "numRecords"
	methodMaxID          = "maxId"
)

const registryABIJSON = `[
  {
    "constant": false,
    "inputs": [{"name": "registeredAddress", "type": "address"}],
    "name": "unregister",
    "outputs": [],
    "type": "function"
  },
  {
    "constant": false,
    "inputs": [{"name": "registeredAddress", "type": "address"}],
    "name": "register",
    "outputs": [],
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [{"name": "", "type": "address"}],
    "name": "records",
    "outputs": [
      {"name": "registeredAddress", "type": "address"},
      {"name": "owner", "type": "address"},
      {"name": "time", "type": "uint256"},
      {"name": "Id", "type": "uint256"}
    ],
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [{"name": "", "type": "uint256"}],
    "name": "workRegistered",
    "outputs": [{"name": "", "type": "address"}],
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "numRecords",
    "outputs": [{"name": "", "type": "uint256"}],
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "maxId",
    "outputs": [{"name": "", "type": "uint256"}],
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "registeredAddress", "type": "address"},
      {"indexed": true, "name": "id", "type": "uint256"},
      {"indexed": true, "name": "owner", "type": "address"},
      {"indexed": false, "name": "time", "type": "uint256"}
    ],
    "name": "Registered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "registeredAddress", "type": "address"},
      {"indexed": true, "name": "id", "type": "uint256"}
    ],
    "name": "Unregistered",
    "type": "event"
  }
]`

// Contract is the parsed interface of the registry contract. It is read-only after
// construction and safe to share between goroutines.
type Contract struct {
	abi abi.ABI
}

var (
	defaultContract     *Contract
	defaultContractOnce sync.Once
	defaultContractErr  error
)

// DefaultContract returns the built-in registry contract interface.
func DefaultContract() (*Contract, error) {
	defaultContractOnce.Do(func() {
		defaultContract, defaultContractErr = ParseContract(strings.NewReader(registryABIJSON))
	})
	return defaultContract, defaultContractErr
}

// eventShape is the layout the decoders are written against.
type eventShape struct {
	sig     string
	indexed []bool
}

// methodShape pins the argument and return types the calls pack and unpack.
type methodShape struct {
	sig     string
	outputs string
}

var registryEvents = map[string]eventShape{
	EventRegistered:   {sig: "Registered(address,uint256,address,uint256)", indexed: []bool{true, true, true, false}},
	EventUnregistered: {sig: "Unregistered(address,uint256)", indexed: []bool{true, true}},
}

var registryMethods = map[string]methodShape{
	methodRegister:       {sig: "register(address)"},
	methodUnregister:     {sig: "unregister(address)"},
	methodRecords:        {sig: "records(address)", outputs: "address,address,uint256,uint256"},
	methodWorkRegistered: {sig: "workRegistered(uint256)", outputs: "address"},
	methodNumRecords:     {sig: "numRecords()", outputs: "uint256"},
	methodMaxID:          {sig: "maxId()", outputs: "uint256"},
}

// ParseContract reads an ABI JSON document and checks that the registry events
// and methods have the shapes this package decodes. A drifted ABI is rejected
// here rather than failing on the first log.
func ParseContract(r io.Reader) (*Contract, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	for name, want := range registryEvents {
		event, ok := parsed.Events[name]
		if !ok {
			return nil, fmt.Errorf("registry abi: missing event %s", name)
		}
		if event.Sig != want.sig {
			return nil, fmt.Errorf("registry abi: event %s has signature %s, want %s", name, event.Sig, want.sig)
		}
		if event.Anonymous {
			return nil, fmt.Errorf("registry abi: event %s must not be anonymous", name)
		}
		for i, arg := range event.Inputs {
			if arg.Indexed != want.indexed[i] {
				return nil, fmt.Errorf("registry abi: event %s argument %d indexed=%t, want %t", name, i, arg.Indexed, want.indexed[i])
			}
		}
	}
	for name, want := range registryMethods {
		method, ok := parsed.Methods[name]
		if !ok {
			return nil, fmt.Errorf("registry abi: missing method %s", name)
		}
		if method.Sig != want.sig {
			return nil, fmt.Errorf("registry abi: method %s has signature %s, want %s", name, method.Sig, want.sig)
		}
		if got := argTypes(method.Outputs); got != want.outputs {
			return nil, fmt.Errorf("registry abi: method %s returns (%s), want (%s)", name, got, want.outputs)
		}
	}
	return &Contract{abi: parsed}, nil
}

func argTypes(args abi.Arguments) string {
	types := make([]string, len(args))
	for i, arg := range args {
		types[i] = arg.Type.String()
	}
	return strings.Join(types, ",")
}

// Topic returns the topic0 signature hash for an event name.
func (c *Contract) Topic(eventName string) (common.Hash, error) {
	event, ok := c.abi.Events[eventName]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidEventName, eventName)
	}
	return event.ID, nil
}

// ABI exposes the parsed ABI for packing test fixtures and custom calls.
func (c *Contract) ABI() abi.ABI {
	return c.abi
}
