package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"registryScope/internal/metrics"
)

// TxOptions are optional transaction fields. Zero Gas and nil Value are left to the node.
type TxOptions struct {
	Gas   uint64
	Value *big.Int
}

// Register submits register(target) from the sender account and returns the
// transaction hash without waiting for it to be mined.
func (r *Registry) Register(ctx context.Context, from, target common.Address, opts TxOptions) (common.Hash, error) {
	return r.transact(ctx, methodRegister, from, opts, target)
}

// Unregister submits unregister(target) from the sender account.
func (r *Registry) Unregister(ctx context.Context, from, target common.Address, opts TxOptions) (common.Hash, error) {
	return r.transact(ctx, methodUnregister, from, opts, target)
}

// Record reads the current records(address) entry.
func (r *Registry) Record(ctx context.Context, address common.Address) (RegistryRecord, error) {
	values, err := r.call(ctx, methodRecords, address)
	if err != nil {
		return RegistryRecord{}, err
	}
	if len(values) != 4 {
		return RegistryRecord{}, r.resultErr(methodRecords, fmt.Errorf("unexpected values: %d", len(values)))
	}

	registered, err := asAddress(values[0])
	if err != nil {
		return RegistryRecord{}, r.resultErr(methodRecords, fmt.Errorf("registered address: %w", err))
	}
	owner, err := asAddress(values[1])
	if err != nil {
		return RegistryRecord{}, r.resultErr(methodRecords, fmt.Errorf("owner: %w", err))
	}
	ts, err := asBigInt(values[2])
	if err != nil {
		return RegistryRecord{}, r.resultErr(methodRecords, fmt.Errorf("time: %w", err))
	}
	id, err := asBigInt(values[3])
	if err != nil {
		return RegistryRecord{}, r.resultErr(methodRecords, fmt.Errorf("id: %w", err))
	}

	return RegistryRecord{
		RegisteredAddress: registered,
		Owner:             owner,
		Time:              ts,
		ID:                id,
	}, nil
}

// WorkRegistered returns the address registered under id.
func (r *Registry) WorkRegistered(ctx context.Context, id *big.Int) (common.Address, error) {
	if id == nil || id.Sign() < 0 {
		return common.Address{}, fmt.Errorf("%s: id must be a non-negative integer", methodWorkRegistered)
	}
	values, err := r.call(ctx, methodWorkRegistered, id)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, r.resultErr(methodWorkRegistered, err)
	}
	return addr, nil
}

// NumRecords returns the numRecords counter.
func (r *Registry) NumRecords(ctx context.Context) (*big.Int, error) {
	return r.callUint(ctx, methodNumRecords)
}

// MaxID returns the highest id handed out so far.
func (r *Registry) MaxID(ctx context.Context) (*big.Int, error) {
	return r.callUint(ctx, methodMaxID)
}

func (r *Registry) callUint(ctx context.Context, method string) (*big.Int, error) {
	values, err := r.call(ctx, method)
	if err != nil {
		return nil, err
	}
	v, err := asBigInt(values[0])
	if err != nil {
		return nil, r.resultErr(method, err)
	}
	return v, nil
}

func (r *Registry) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := r.contract.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &r.address, Data: data}
	resp, err := r.ledger.CallContract(ctx, msg, nil)
	if err != nil {
		err = classifyLedgerError(method, err)
		r.observe(method, err)
		return nil, err
	}
	r.observe(method, nil)

	// An empty result means no code at the address or a revert without data.
	if len(resp) == 0 {
		return nil, r.resultErr(method, fmt.Errorf("empty result"))
	}
	values, err := r.contract.abi.Unpack(method, resp)
	if err != nil {
		return nil, r.resultErr(method, err)
	}
	if len(values) == 0 {
		return nil, r.resultErr(method, fmt.Errorf("no values"))
	}
	return values, nil
}

func (r *Registry) resultErr(method string, err error) error {
	metrics.LedgerRequests.WithLabelValues(method, metrics.OutcomeDecodeError).Inc()
	return fmt.Errorf("%w: %s result: %w", ErrDecode, method, err)
}

func (r *Registry) transact(ctx context.Context, method string, from common.Address, opts TxOptions, args ...interface{}) (common.Hash, error) {
	data, err := r.contract.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &r.address,
		Gas:   opts.Gas,
		Value: opts.Value,
		Data:  data,
	}
	hash, err := r.ledger.SendTransaction(ctx, msg)
	if err != nil {
		err = classifyLedgerError(method, err)
		r.observe(method, err)
		r.logger.Warn("transaction rejected", zap.String("method", method), zap.String("from", from.Hex()), zap.Error(err))
		return common.Hash{}, err
	}
	r.observe(method, nil)

	r.logger.Info("transaction submitted",
		zap.String("method", method),
		zap.String("from", from.Hex()),
		zap.String("tx_hash", hash.Hex()),
	)
	return hash, nil
}

func (r *Registry) observe(method string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrContractExecution):
		outcome = metrics.OutcomeReverted
	default:
		outcome = metrics.OutcomeUnavailable
	}
	metrics.LedgerRequests.WithLabelValues(method, outcome).Inc()
}
