package compare

import (
	"github.com/dbsmedya/layoutdiff/internal/layout"
)

func scalar(label, size string) *layout.TypeDescriptor {
	return &layout.TypeDescriptor{Label: label, Encoding: "inplace", NumberOfBytes: size}
}

func structType(label, size string, members ...layout.Member) *layout.TypeDescriptor {
	if members == nil {
		members = []layout.Member{}
	}
	return &layout.TypeDescriptor{Label: label, Encoding: "inplace", NumberOfBytes: size, Members: members}
}

func dynArray(label, base string) *layout.TypeDescriptor {
	return &layout.TypeDescriptor{Label: label, Encoding: "dynamic_array", NumberOfBytes: "32", Base: base}
}

func member(label, typ, slot string, offset uint64) layout.Member {
	return layout.Member{ASTID: 1, Contract: "C.sol:C", Label: label, Type: typ, Slot: slot, Offset: offset}
}

func universe(pairs ...interface{}) *layout.Universe {
	u := layout.NewUniverse()
	for i := 0; i < len(pairs); i += 2 {
		u.Set(pairs[i].(string), pairs[i+1].(*layout.TypeDescriptor))
	}
	return u
}

func entry(label, typ, slot string, offset uint64) layout.StorageEntry {
	return layout.StorageEntry{ASTID: 1, Contract: "C.sol:C", Label: label, Type: typ, Slot: slot, Offset: offset}
}
