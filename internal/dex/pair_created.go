package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"pairwatch/internal/model"
)

// PairCreatedTopic returns topic0 of the PairCreated event.
func PairCreatedTopic() (common.Hash, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse factory abi: %w", err)
	}
	return parsed.Events[PairCreatedEvent].ID, nil
}

// DecodePairCreated converts a factory log into a PairEvent. The Source
// field is left empty for the caller to fill.
func DecodePairCreated(log types.Log) (model.PairEvent, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return model.PairEvent{}, fmt.Errorf("parse factory abi: %w", err)
	}
	event := parsed.Events[PairCreatedEvent]

	if len(log.Topics) != 3 {
		return model.PairEvent{}, fmt.Errorf("expected 3 topics, got %d", len(log.Topics))
	}
	if log.Topics[0] != event.ID {
		return model.PairEvent{}, fmt.Errorf("unexpected topic0: %s", log.Topics[0].Hex())
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.PairEvent{}, fmt.Errorf("unpack data: %w", err)
	}
	if len(values) != 2 {
		return model.PairEvent{}, fmt.Errorf("expected 2 data values, got %d", len(values))
	}

	pair, err := asAddress(values[0])
	if err != nil {
		return model.PairEvent{}, fmt.Errorf("pair: %w", err)
	}
	index, err := asBigInt(values[1])
	if err != nil {
		return model.PairEvent{}, fmt.Errorf("pair index: %w", err)
	}

	return model.PairEvent{
		Factory:     log.Address,
		Token0:      common.BytesToAddress(log.Topics[1].Bytes()),
		Token1:      common.BytesToAddress(log.Topics[2].Bytes()),
		PairAddress: pair,
		PairIndex:   index.String(),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
	}, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
