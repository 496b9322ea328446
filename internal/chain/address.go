package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Canonical returns the lower-case 0x-prefixed hex form of addr. It is the
// only representation used for equality checks and map keys.
func Canonical(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// CanonicalizeHex validates a textual address and returns its canonical form.
// Mixed-case (checksummed) and lower-case inputs of the same address yield the
// same result, and canonical input is returned unchanged.
func CanonicalizeHex(input string) (string, error) {
	addr, err := ParseAddress(input)
	if err != nil {
		return "", err
	}
	return Canonical(addr), nil
}

// ParseAddress converts a textual address into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address, skipping
// blank entries.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
