package dedup

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryClaimOnce(t *testing.T) {
	store := NewStore()
	pair := common.HexToAddress("0xcc00000000000000000000000000000000000003")

	assert.True(t, store.TryClaim(pair))
	assert.False(t, store.TryClaim(pair))
	assert.False(t, store.TryClaim(pair))

	other := common.HexToAddress("0xcc00000000000000000000000000000000000004")
	assert.True(t, store.TryClaim(other), "claims are per pair")
}

func TestTryClaimIgnoresCasing(t *testing.T) {
	store := NewStore()

	lower := common.HexToAddress("0x195b605fa7c6f379fd27ddeec89cfae6caabfae9")
	upper := common.HexToAddress("0x195B605FA7C6F379FD27DDEEC89CFAE6CAABFAE9")

	assert.True(t, store.TryClaim(lower))
	assert.False(t, store.TryClaim(upper))
}

func TestTryClaimConcurrent(t *testing.T) {
	store := NewStore()
	pairs := []common.Address{
		common.HexToAddress("0xcc00000000000000000000000000000000000003"),
		common.HexToAddress("0xcc00000000000000000000000000000000000004"),
		common.HexToAddress("0xcc00000000000000000000000000000000000005"),
	}

	const workers = 64
	wins := make([]atomic.Int32, len(pairs))

	var start sync.WaitGroup
	start.Add(1)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			for i, pair := range pairs {
				if store.TryClaim(pair) {
					wins[i].Add(1)
				}
			}
		}()
	}
	start.Done()
	wg.Wait()

	for i := range pairs {
		require.Equal(t, int32(1), wins[i].Load(), "pair %s", pairs[i].Hex())
	}
	for _, pair := range pairs {
		assert.False(t, store.TryClaim(pair), "pair %s", pair.Hex())
	}
}
