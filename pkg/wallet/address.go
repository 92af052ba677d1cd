// Package wallet verifies Ethereum personal_sign (EIP-191) signatures and normalises
// wallet addresses.
package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsAddress reports whether s is 0x followed by 40 hex characters. Checksum casing is
// not enforced.
func IsAddress(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return common.IsHexAddress(s)
}

// Normalize returns the lowercase 0x-prefixed form used for storage and comparison.
// Invalid input is returned trimmed and lowercased so callers can still compare it.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "0x") {
		return s
	}
	if common.IsHexAddress(s) {
		return "0x" + s
	}
	return s
}

// Checksum returns the EIP-55 mixed-case form for display, or "" if s is not an address.
func Checksum(s string) string {
	if !IsAddress(s) {
		return ""
	}
	return common.HexToAddress(strings.TrimSpace(s)).Hex()
}

// Equal compares two addresses case-insensitively.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
