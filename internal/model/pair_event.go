package model

import "github.com/ethereum/go-ethereum/common"

// PairEvent is a PairCreated observation emitted by a factory contract.
type PairEvent struct {
	Source      string         `json:"source"`
	Factory     common.Address `json:"factory"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	PairAddress common.Address `json:"pair_address"`
	PairIndex   string         `json:"pair_index,omitempty"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      string         `json:"tx_hash"`
	LogIndex    uint64         `json:"log_index"`
}
