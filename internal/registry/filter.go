package registry

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// BlockRef is an explicit block number or the symbolic latest block.
type BlockRef struct {
	number uint64
	latest bool
}

// BlockNumber references an explicit block.
func BlockNumber(n uint64) BlockRef {
	return BlockRef{number: n}
}

// LatestBlock references the chain tip at query time.
func LatestBlock() BlockRef {
	return BlockRef{latest: true}
}

func (b BlockRef) IsLatest() bool { return b.latest }

// Number returns the explicit block number; it is zero for latest.
func (b BlockRef) Number() uint64 { return b.number }

func (b BlockRef) String() string {
	if b.latest {
		return "latest"
	}
	return strconv.FormatUint(b.number, 10)
}

func (b BlockRef) bigInt() *big.Int {
	if b.latest {
		return nil
	}
	return new(big.Int).SetUint64(b.number)
}

// FilterSpec is a log query scoped to one contract and one event topic.
type FilterSpec struct {
	Contract  common.Address
	FromBlock BlockRef
	ToBlock   BlockRef
	Topics    []common.Hash
}

// Query converts the filter into the go-ethereum query shape. Topics sit in the
// topic0 position.
func (f FilterSpec) Query() ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: f.FromBlock.bigInt(),
		ToBlock:   f.ToBlock.bigInt(),
		Addresses: []common.Address{f.Contract},
	}
	if len(f.Topics) > 0 {
		topics := make([]common.Hash, len(f.Topics))
		copy(topics, f.Topics)
		query.Topics = [][]common.Hash{topics}
	}
	return query
}

// BuildFilter builds the log filter for a registry event. It does not touch the network.
func (r *Registry) BuildFilter(eventName string, from, to BlockRef) (FilterSpec, error) {
	topic, err := r.contract.Topic(eventName)
	if err != nil {
		return FilterSpec{}, err
	}
	if from.IsLatest() && !to.IsLatest() {
		return FilterSpec{}, fmt.Errorf("%w: from latest to %s", ErrInvalidBlockRange, to)
	}
	if !from.IsLatest() && !to.IsLatest() && from.Number() > to.Number() {
		return FilterSpec{}, fmt.Errorf("%w: %s > %s", ErrInvalidBlockRange, from, to)
	}
	return FilterSpec{
		Contract:  r.address,
		FromBlock: from,
		ToBlock:   to,
		Topics:    []common.Hash{topic},
	}, nil
}
