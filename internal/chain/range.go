package chain

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits [from, to] into consecutive inclusive ranges of at most
// span blocks each.
func SplitRange(from, to, span uint64) ([]BlockRange, error) {
	if span == 0 {
		return nil, fmt.Errorf("block span must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/span+1)
	for start := from; ; {
		end := to
		if to-start >= span {
			end = start + span - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
