package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxSlot = "115792089237316195423570985008687907853269984665640564039457584007913129639935" // 2^256-1

func TestFormatSlot(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "zero", input: "0", expected: "0x" + strings.Repeat("0", 64)},
		{name: "one", input: "1", expected: "0x" + strings.Repeat("0", 63) + "1"},
		{name: "ten", input: "10", expected: "0x" + strings.Repeat("0", 63) + "a"},
		{name: "leading zeros", input: "0007", expected: "0x" + strings.Repeat("0", 63) + "7"},
		{name: "max", input: maxSlot, expected: "0x" + strings.Repeat("f", 64)},
		{
			name:     "keccak-sized slot",
			input:    "80084422859880547211683076133703299733277748156566366325829078699459944778998",
			expected: "0xb10e2d527612073b26eecdfd717e6a320cf44b4afac2b0732d9fcbe2b7fa0cf6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatSlot(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Len(t, got, 66)
		})
	}
}

func TestFormatSlot_Overflow(t *testing.T) {
	// 2^256
	_, err := FormatSlot("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSlotOverflow)
}

func TestFormatSlot_Invalid(t *testing.T) {
	for _, in := range []string{"", "-1", "0x10", "abc", "1.5", " 1"} {
		_, err := FormatSlot(in)
		assert.ErrorIs(t, err, ErrInvalidSlot, "input %q", in)
	}
}

func TestParseSlot(t *testing.T) {
	v, err := ParseSlot("255")
	require.NoError(t, err)
	assert.Equal(t, uint64(255), v.Uint64())
}
