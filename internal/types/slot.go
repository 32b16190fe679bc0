// Package types contains shared types and value conversions used across
// multiple packages to avoid import cycles.
package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInvalidSlot is returned for slot values that are not non-negative decimals.
	ErrInvalidSlot = errors.New("invalid slot value")

	// ErrSlotOverflow is returned for slot values above 2^256-1.
	ErrSlotOverflow = errors.New("slot value exceeds 256 bits")
)

// ParseSlot parses a decimal slot index.
func ParseSlot(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrSlotOverflow, s)
	}
	return v, nil
}

// SlotHex renders a slot as 0x followed by exactly 64 lowercase hex digits.
func SlotHex(v *uint256.Int) string {
	return common.Hash(v.Bytes32()).Hex()
}

// FormatSlot parses a decimal slot and renders it with SlotHex.
func FormatSlot(s string) (string, error) {
	v, err := ParseSlot(s)
	if err != nil {
		return "", err
	}
	return SlotHex(v), nil
}
