package format

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/layoutdiff/internal/compare"
	"github.com/dbsmedya/layoutdiff/internal/layout"
)

func zeroSlot() string { return "0x" + strings.Repeat("0", 64) }

func TestCommonObjects(t *testing.T) {
	records := CommonObjects([]compare.CommonObject{{
		Label: "x", Type: "t_uint256",
		OldSlot: zeroSlot(), NewSlot: "0x" + strings.Repeat("0", 63) + "1",
	}})

	data, err := Marshal(records, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"label": "x", "type": "t_uint256",
		"oldSlot": "0x0000000000000000000000000000000000000000000000000000000000000000",
		"newSlot": "0x0000000000000000000000000000000000000000000000000000000000000001",
		"oldOffset": 0, "newOffset": 0
	}]`, string(data))
}

func TestCommonObjects_EmptyIsArray(t *testing.T) {
	data, err := Marshal(CommonObjects(nil), 0)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestTypes_Scalar(t *testing.T) {
	records, err := Types([]compare.MergedType{{
		ID:               "t_uint256",
		Descriptor:       &layout.TypeDescriptor{Label: "uint256", Encoding: "inplace", NumberOfBytes: "32"},
		OldNumberOfBytes: uint256.NewInt(32),
		NewNumberOfBytes: uint256.NewInt(32),
	}})
	require.NoError(t, err)

	data, err := Marshal(records, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"type": "t_uint256", "label": "uint256", "encoding": "inplace", "numberOfBytes": "32",
		"base": null, "oldNumberOfBytes": 32, "newNumberOfBytes": 32, "members": null
	}]`, string(data))
}

func TestTypes_StructMembersStripped(t *testing.T) {
	records, err := Types([]compare.MergedType{{
		ID:               "t_struct(S)_storage",
		Descriptor:       &layout.TypeDescriptor{Label: "struct S", Encoding: "inplace", NumberOfBytes: "64"},
		OldNumberOfBytes: uint256.NewInt(64),
		NewNumberOfBytes: uint256.NewInt(32),
		Members: []compare.MergedMember{{
			Member:    layout.Member{ASTID: 4, Contract: "Old.sol:C", Label: "a", Type: "t_uint256", Slot: "1", Offset: 0},
			OldSlot:   "1",
			NewSlot:   "0",
			OldOffset: 0,
			NewOffset: 0,
		}},
	}})
	require.NoError(t, err)

	data, err := Marshal(records, 0)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	members := decoded[0]["members"].([]interface{})
	require.Len(t, members, 1)

	m := members[0].(map[string]interface{})
	for _, key := range []string{"astId", "contract", "label", "slot"} {
		assert.NotContains(t, m, key)
	}
	assert.Equal(t, "t_uint256", m["type"])
	assert.Equal(t, "0x"+strings.Repeat("0", 63)+"1", m["oldSlot"])
	assert.Equal(t, zeroSlot(), m["newSlot"])
}

func TestTypes_BaseAndEmptyMembers(t *testing.T) {
	records, err := Types([]compare.MergedType{
		{
			ID:         "t_array(t_uint8)dyn_storage",
			Descriptor: &layout.TypeDescriptor{Label: "uint8[]", Encoding: "dynamic_array", NumberOfBytes: "32"},
			Base:       "t_uint8",
		},
		{
			ID:         "t_struct(E)_storage",
			Descriptor: &layout.TypeDescriptor{Label: "struct E", Encoding: "inplace", NumberOfBytes: "32"},
			Members:    []compare.MergedMember{},
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].Base)
	assert.Equal(t, "t_uint8", *records[0].Base)
	assert.Nil(t, records[0].Members)

	data, err := Marshal(records[1], 0)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"members":[]`)
}

func TestTypes_SlotOverflowFails(t *testing.T) {
	_, err := Types([]compare.MergedType{{
		ID:         "t_struct(S)_storage",
		Descriptor: &layout.TypeDescriptor{Label: "struct S"},
		Members: []compare.MergedMember{{
			Member:  layout.Member{Label: "a"},
			OldSlot: "115792089237316195423570985008687907853269984665640564039457584007913129639936",
			NewSlot: "0",
		}},
	}})
	assert.Error(t, err)
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	data, err := Marshal(map[string]string{"label": "mapping(address => uint256)"}, 0)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=>")
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	names := Files{CommonObjects: "storage_reorg_info.json", Types: "data_types.json"}

	require.NoError(t, WriteFiles(dir, names, []byte("[]\n"), []byte("[1]\n")))

	data, err := os.ReadFile(filepath.Join(dir, "storage_reorg_info.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "data_types.json"))
	require.NoError(t, err)
	assert.Equal(t, "[1]\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "data_types.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestTypes_ByteSizeAbove64Bits(t *testing.T) {
	huge, err := uint256.FromDecimal("590295810358705651712")
	require.NoError(t, err)

	records, err := Types([]compare.MergedType{{
		ID:               "t_array(t_uint256)18446744073709551616_storage",
		Descriptor:       &layout.TypeDescriptor{Label: "uint256[18446744073709551616]", Encoding: "inplace", NumberOfBytes: "590295810358705651712", Base: "t_uint256"},
		OldNumberOfBytes: huge,
		NewNumberOfBytes: huge,
		Base:             "t_uint256",
	}})
	require.NoError(t, err)

	data, err := Marshal(records, 0)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"oldNumberOfBytes":590295810358705651712`)
	assert.Contains(t, string(data), `"newNumberOfBytes":590295810358705651712`)
}
