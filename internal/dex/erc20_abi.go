package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Most tokens return symbol() as string; some early ones (MKR, SAI) return bytes32.
const erc20SymbolStringJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20SymbolBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20SymbolString      abi.ABI
	erc20SymbolStringOnce  sync.Once
	erc20SymbolStringErr   error
	erc20SymbolBytes32     abi.ABI
	erc20SymbolBytes32Once sync.Once
	erc20SymbolBytes32Err  error
)

func erc20SymbolStringABI() (abi.ABI, error) {
	erc20SymbolStringOnce.Do(func() {
		erc20SymbolString, erc20SymbolStringErr = abi.JSON(strings.NewReader(erc20SymbolStringJSON))
	})
	return erc20SymbolString, erc20SymbolStringErr
}

func erc20SymbolBytes32ABI() (abi.ABI, error) {
	erc20SymbolBytes32Once.Do(func() {
		erc20SymbolBytes32, erc20SymbolBytes32Err = abi.JSON(strings.NewReader(erc20SymbolBytes32JSON))
	})
	return erc20SymbolBytes32, erc20SymbolBytes32Err
}
