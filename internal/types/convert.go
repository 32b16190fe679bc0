package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrInvalidByteSize is returned for numberOfBytes values that are not
// non-negative decimals representable in 256 bits.
var ErrInvalidByteSize = errors.New("invalid byte size")

// ParseByteSize converts a decimal numberOfBytes value. Static arrays may
// span more than 2^64 bytes, so the result is a 256-bit integer.
func ParseByteSize(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidByteSize)
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidByteSize, s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrInvalidByteSize, s)
	}
	return v, nil
}
