package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrLedgerUnavailable wraps transport failures talking to the ledger.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrDecode reports a log or call result that does not match the expected shape.
	ErrDecode = errors.New("decode ledger data")
	// ErrContractExecution is matched by every *ContractExecutionError.
	ErrContractExecution = errors.New("contract execution reverted")
	// ErrInvalidEventName is returned before any network call for unknown events.
	ErrInvalidEventName = errors.New("invalid event name")
	// ErrInvalidBlockRange is returned when an explicit from block is past the to block.
	ErrInvalidBlockRange = errors.New("invalid block range")
)

// ContractExecutionError is a call or transaction rejected by the contract.
type ContractExecutionError struct {
	Method string
	// Reason is the decoded revert string, empty when the node did not return one.
	Reason string
	Err    error
}

func (e *ContractExecutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: execution reverted: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("%s: execution reverted", e.Method)
}

func (e *ContractExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrContractExecution}
	}
	return []error{ErrContractExecution, e.Err}
}

// JSON-RPC error code geth uses for reverted calls.
const revertErrorCode = 3

// classifyLedgerError maps an RPC failure to ContractExecutionError when the node
// reported a revert, and to ErrLedgerUnavailable otherwise.
func classifyLedgerError(method string, err error) error {
	if err == nil {
		return nil
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := revertReason(dataErr.ErrorData()); ok {
			return &ContractExecutionError{Method: method, Reason: reason, Err: err}
		}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return &ContractExecutionError{Method: method, Reason: reasonFromMessage(err.Error()), Err: err}
	}
	if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
		return &ContractExecutionError{Method: method, Reason: reasonFromMessage(err.Error()), Err: err}
	}

	return fmt.Errorf("%s: %w: %w", method, ErrLedgerUnavailable, err)
}

func revertReason(data interface{}) (string, bool) {
	encoded, ok := data.(string)
	if !ok || encoded == "" {
		return "", false
	}
	raw, err := hexutil.Decode(encoded)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		// Custom errors and panics carry data we cannot render as a string.
		return "", true
	}
	return reason, true
}

func reasonFromMessage(msg string) string {
	const marker = "execution reverted:"
	idx := strings.Index(strings.ToLower(msg), marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(msg[idx+len(marker):])
}
