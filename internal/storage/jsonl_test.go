package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch/internal/model"
)

func sampleDiscovery(id string) model.Discovery {
	return model.Discovery{
		ID:           id,
		DiscoveredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Record: model.PairRecord{
			Event: model.PairEvent{
				Source:      "PopSwap",
				Token0:      common.HexToAddress("0x1"),
				Token1:      common.HexToAddress("0x2"),
				PairAddress: common.HexToAddress("0x3"),
				BlockNumber: 10,
			},
			Symbol0: "FOO",
			Symbol1: "BAR",
		},
		Dispatched: true,
	}
}

func readLines(t *testing.T, path string) []model.Discovery {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []model.Discovery
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var d model.Discovery
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &d))
		out = append(out, d)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pairs.jsonl")
	store := NewJsonlStorage(path)

	require.NoError(t, store.PutDiscovery(context.Background(), sampleDiscovery("a")))
	require.NoError(t, store.PutDiscovery(context.Background(), sampleDiscovery("b")))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].ID)
	assert.Equal(t, "b", lines[1].ID)
	assert.Equal(t, "FOO", lines[0].Record.Symbol0)
	assert.Equal(t, common.HexToAddress("0x3"), lines[0].Record.Event.PairAddress)
}

func TestJsonlStorageConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.jsonl")
	store := NewJsonlStorage(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.PutDiscovery(context.Background(), sampleDiscovery("x")))
		}()
	}
	wg.Wait()

	assert.Len(t, readLines(t, path), 20)
}

func TestJsonlStorageCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.jsonl")
	store := NewJsonlStorage(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.PutDiscovery(ctx, sampleDiscovery("a")), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
