package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogReader is the subset of Client used by LogCursor.
type LogReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// LogCursor returns logs for one contract strictly forward from the chain
// head observed on the first call. Each block is delivered at most once.
type LogCursor struct {
	reader  LogReader
	address common.Address
	topic0  []common.Hash
	maxSpan uint64

	mu      sync.Mutex
	next    uint64
	started bool
}

// NewLogCursor creates a cursor over logs emitted by address with one of topic0.
func NewLogCursor(reader LogReader, address common.Address, topic0 []common.Hash, maxSpan uint64) *LogCursor {
	if maxSpan == 0 {
		maxSpan = 2000
	}
	return &LogCursor{
		reader:  reader,
		address: address,
		topic0:  topic0,
		maxSpan: maxSpan,
	}
}

// Next returns the logs in blocks that appeared since the previous call.
// The first successful call only records the current head and returns
// nothing. On a partial failure the logs read so far are returned together
// with the error, and the cursor stays at the first unread block.
func (c *LogCursor) Next(ctx context.Context) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	latest, err := c.reader.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	if !c.started {
		c.next = latest + 1
		c.started = true
		return nil, nil
	}
	if latest < c.next {
		return nil, nil
	}

	ranges, err := SplitRange(c.next, latest, c.maxSpan)
	if err != nil {
		return nil, err
	}

	var out []types.Log
	addresses := []common.Address{c.address}
	for _, blockRange := range ranges {
		logs, err := c.reader.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, c.topic0)
		if err != nil {
			return out, fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		out = append(out, logs...)
		c.next = blockRange.To + 1
	}

	return out, nil
}

// Position returns the next block the cursor will read and whether the
// cursor has been anchored to the chain head yet.
func (c *LogCursor) Position() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next, c.started
}
