// Package layout models the storage layout documents produced by the Solidity
// compiler and the canonicalization applied before two versions are compared.
package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Member is one field of an aggregate (struct) type.
type Member struct {
	ASTID    int64  `json:"astId"`
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Offset   uint64 `json:"offset"`
	Slot     string `json:"slot"` // decimal, arbitrary precision
	Type     string `json:"type"`
}

// StorageEntry is a top-level state variable of a contract.
type StorageEntry struct {
	ASTID    int64  `json:"astId"`
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Offset   uint64 `json:"offset"`
	Slot     string `json:"slot"` // decimal, arbitrary precision
	Type     string `json:"type"`
}

// Storage encodings emitted by solc.
const (
	EncodingInplace      = "inplace"
	EncodingMapping      = "mapping"
	EncodingDynamicArray = "dynamic_array"
	EncodingBytes        = "bytes"
)

// TypeDescriptor describes one entry of a type universe.
//
// Base and Members carry presence: an empty Base means the type has no
// element type, a nil Members means the type is not an aggregate. A non-nil
// empty Members is an aggregate without fields.
type TypeDescriptor struct {
	Label         string   `json:"label"`
	Encoding      string   `json:"encoding"`
	NumberOfBytes string   `json:"numberOfBytes"`
	Base          string   `json:"base,omitempty"`
	Key           string   `json:"key,omitempty"`   // mapping key type
	Value         string   `json:"value,omitempty"` // mapping value type
	Members       []Member `json:"members"`
}

// HasBase reports whether the type is a container with an element type.
func (t *TypeDescriptor) HasBase() bool {
	return t.Base != ""
}

// HasMembers reports whether the type is an aggregate.
func (t *TypeDescriptor) HasMembers() bool {
	return t.Members != nil
}

// Clone returns a deep copy, preserving the nil/empty distinction of Members.
func (t *TypeDescriptor) Clone() *TypeDescriptor {
	c := *t
	if t.Members != nil {
		c.Members = make([]Member, len(t.Members))
		copy(c.Members, t.Members)
	}
	return &c
}

// Layout is one version's storage layout: the ordered state variables and
// the universe of types they reference.
type Layout struct {
	Storage []StorageEntry `json:"storage"`
	Types   *Universe      `json:"types"`
}

// Parse decodes a layout document.
func Parse(data []byte) (*Layout, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single layout document from r. Trailing data after the
// document is ignored, which lets callers hand over compiler output that
// carries several layouts back to back.
func Decode(r io.Reader) (*Layout, error) {
	var l Layout
	dec := json.NewDecoder(r)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("failed to decode storage layout: %w", err)
	}
	if l.Types == nil {
		l.Types = NewUniverse()
	}
	if l.Storage == nil {
		l.Storage = []StorageEntry{}
	}
	return &l, nil
}
