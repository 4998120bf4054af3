package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddress converts a hex string into common.Address. name labels the error.
func ParseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s: %s", name, input)
	}
	return common.HexToAddress(input), nil
}

// LatestBlock is the block value that means the chain tip.
const LatestBlock = "latest"

// ParseBlock reads a block number or "latest". An empty input means latest.
func ParseBlock(name, input string) (uint64, bool, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, LatestBlock) {
		return 0, true, nil
	}
	n, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s block: %s", name, input)
	}
	return n, false, nil
}

// ParseBigInt accepts a decimal or 0x-prefixed hex integer. An empty input returns nil.
func ParseBigInt(name, input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		v, err := hexutil.DecodeBig(strings.ToLower(input))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", name, input)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", name, input)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return v, nil
}
