package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairwatch/internal/chain"
	"pairwatch/internal/metrics"
)

// ErrMetadataUnavailable is returned when a token's metadata cannot be read,
// whatever the underlying cause.
var ErrMetadataUnavailable = errors.New("token metadata unavailable")

// SymbolPlaceholder is rendered in place of a symbol that could not be read.
const SymbolPlaceholder = "N/A"

const maxSymbolLen = 32

// ContractCaller is the subset of chain.Client used for read-only calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ReadSymbol reads the ERC20 symbol of token, accepting both string and
// bytes32 return types. Every failure is reported as ErrMetadataUnavailable.
func ReadSymbol(ctx context.Context, caller ContractCaller, token common.Address) (string, error) {
	if caller == nil {
		return "", fmt.Errorf("%w: chain client is nil", ErrMetadataUnavailable)
	}

	stringABI, err := erc20SymbolStringABI()
	if err != nil {
		return "", fmt.Errorf("%w: parse erc20 string abi: %v", ErrMetadataUnavailable, err)
	}
	bytes32ABI, err := erc20SymbolBytes32ABI()
	if err != nil {
		return "", fmt.Errorf("%w: parse erc20 bytes32 abi: %v", ErrMetadataUnavailable, err)
	}

	resp, err := callSymbol(ctx, caller, token, stringABI)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, token.Hex(), err)
	}

	if symbol, ok := unpackSymbol(stringABI, resp); ok {
		return symbol, nil
	}
	if symbol, ok := unpackSymbol(bytes32ABI, resp); ok {
		return symbol, nil
	}
	return "", fmt.Errorf("%w: %s: malformed symbol response", ErrMetadataUnavailable, token.Hex())
}

func callSymbol(ctx context.Context, caller ContractCaller, token common.Address, parsed abi.ABI) ([]byte, error) {
	data, err := parsed.Pack("symbol")
	if err != nil {
		return nil, fmt.Errorf("pack symbol: %w", err)
	}
	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call symbol: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("call symbol: empty response")
	}
	return resp, nil
}

func unpackSymbol(parsed abi.ABI, resp []byte) (string, bool) {
	values, err := parsed.Unpack("symbol", resp)
	if err != nil || len(values) == 0 {
		return "", false
	}

	var symbol string
	switch v := values[0].(type) {
	case string:
		symbol = v
	case [32]byte:
		symbol = string(bytes.TrimRight(v[:], "\x00"))
	default:
		return "", false
	}

	symbol = sanitizeSymbol(symbol)
	return symbol, symbol != ""
}

func sanitizeSymbol(symbol string) string {
	symbol = strings.ToValidUTF8(symbol, "")
	symbol = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, symbol)
	symbol = strings.TrimSpace(symbol)
	if runes := []rune(symbol); len(runes) > maxSymbolLen {
		symbol = string(runes[:maxSymbolLen])
	}
	return symbol
}

// SymbolCache caches resolved symbols by canonical token address.
type SymbolCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewSymbolCache() *SymbolCache {
	return &SymbolCache{data: make(map[string]string)}
}

func (c *SymbolCache) Get(token common.Address) (string, bool) {
	c.mu.RLock()
	symbol, ok := c.data[chain.Canonical(token)]
	c.mu.RUnlock()
	return symbol, ok
}

func (c *SymbolCache) Set(token common.Address, symbol string) {
	c.mu.Lock()
	c.data[chain.Canonical(token)] = symbol
	c.mu.Unlock()
}

// SymbolResolverConfig configures a SymbolResolver.
type SymbolResolverConfig struct {
	Placeholder string
	CallTimeout time.Duration
	Metrics     *metrics.Pipeline
}

// SymbolResolver turns token addresses into display symbols. It never fails:
// unreadable symbols resolve to the placeholder.
type SymbolResolver struct {
	caller      ContractCaller
	cache       *SymbolCache
	placeholder string
	timeout     time.Duration
	metrics     *metrics.Pipeline
	logger      *zap.Logger
}

func NewSymbolResolver(caller ContractCaller, cfg SymbolResolverConfig, logger *zap.Logger) *SymbolResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = SymbolPlaceholder
	}
	return &SymbolResolver{
		caller:      caller,
		cache:       NewSymbolCache(),
		placeholder: cfg.Placeholder,
		timeout:     cfg.CallTimeout,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// ResolveSymbol returns the symbol of token or the placeholder. Only
// successful reads are cached.
func (r *SymbolResolver) ResolveSymbol(ctx context.Context, token common.Address) string {
	if symbol, ok := r.cache.Get(token); ok {
		return symbol
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	symbol, err := ReadSymbol(ctx, r.caller, token)
	if err != nil {
		r.logger.Warn("symbol lookup failed",
			zap.String("kind", "metadata_unavailable"),
			zap.String("token", token.Hex()),
			zap.Error(err),
		)
		r.metrics.EnrichmentFailed("symbol")
		return r.placeholder
	}

	r.cache.Set(token, symbol)
	return symbol
}
