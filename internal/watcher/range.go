package watcher

import (
	"fmt"

	"registryScope/internal/registry"
)

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits [from, to] into consecutive chunks of at most size blocks.
// The registry issues one log query per call, so large ranges are split here.
func SplitRange(from, to, size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("%w: %d > %d", registry.ErrInvalidBlockRange, from, to)
	}

	ranges := make([]BlockRange, 0, (to-from)/size+1)
	start := from
	for {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
