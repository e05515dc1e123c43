package util

import (
	"github.com/ethereum/go-ethereum/common"
)

// ShortAddress abbreviates an address for display, e.g. 0x1234...abcd
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
