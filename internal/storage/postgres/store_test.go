package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch/internal/model"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}

func TestDiscoveryArgs(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := model.Discovery{
		ID:           "0b6c8c38-6a4f-4b53-9f43-3c2f6f1f4a10",
		DiscoveredAt: at,
		Record: model.PairRecord{
			Event: model.PairEvent{
				Source:      "RockSwap",
				Factory:     common.HexToAddress("0x02C73ECB9B82E545E32665EDC42AE903F8AA86A9"),
				Token0:      common.HexToAddress("0x1"),
				Token1:      common.HexToAddress("0x2"),
				PairAddress: common.HexToAddress("0xAbCd000000000000000000000000000000000003"),
				BlockNumber: 77,
				TxHash:      "0xfeed",
			},
			Symbol0: "FOO",
			Symbol1: "N/A",
		},
	}

	args := discoveryArgs(d, []byte(`{}`))
	require.Len(t, args, 14)
	assert.Equal(t, "0x02c73ecb9b82e545e32665edc42ae903f8aa86a9", args[2])
	assert.Equal(t, "0xabcd000000000000000000000000000000000003", args[3])
	assert.Equal(t, int64(77), args[8])
	assert.Equal(t, false, args[11])
	assert.Nil(t, args[12])
	assert.Equal(t, at, args[13])

	d.DispatchError = "chat not found"
	args = discoveryArgs(d, []byte(`{}`))
	msg, ok := args[12].(*string)
	require.True(t, ok)
	assert.Equal(t, "chat not found", *msg)
}
