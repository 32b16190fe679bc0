package reorg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/layout"
)

var (
	// ErrUnknownType is returned when a record refers to a type missing from
	// the type-graph record.
	ErrUnknownType = errors.New("type not found in type graph")

	// ErrUnsupportedEncoding is returned for values that cannot be enumerated
	// from storage alone, such as mappings.
	ErrUnsupportedEncoding = errors.New("unsupported storage encoding")

	// ErrTypeTooLarge is returned for types whose byte size does not fit in
	// 64 bits.
	ErrTypeTooLarge = errors.New("type too large to reorganize")
)

// Ref locates one value in both layouts.
type Ref struct {
	Type      string
	OldSlot   common.Hash
	NewSlot   common.Hash
	OldOffset uint64
	NewOffset uint64
}

// Member is a struct member relative to the start of its struct.
type Member struct {
	Type      string
	OldSlot   *uint256.Int
	NewSlot   *uint256.Int
	OldOffset uint64
	NewOffset uint64
}

// Type is a merged type as needed for reorganization.
type Type struct {
	ID       string
	Encoding string
	Base     string
	OldBytes uint64
	NewBytes uint64
	Members  []Member
}

// IsStruct reports whether the type has surviving members.
func (t *Type) IsStruct() bool {
	return len(t.Members) > 0
}

// Plan is the decoded pair of records.
type Plan struct {
	Objects []Ref
	Types   map[string]*Type
}

// NewPlan converts emitted records into a plan.
func NewPlan(objects []format.CommonObjectRecord, types []format.TypeRecord) (*Plan, error) {
	p := &Plan{
		Objects: make([]Ref, 0, len(objects)),
		Types:   make(map[string]*Type, len(types)),
	}

	for _, o := range objects {
		oldSlot, err := parseHash(o.OldSlot)
		if err != nil {
			return nil, fmt.Errorf("common object %q: %w", o.Label, err)
		}
		newSlot, err := parseHash(o.NewSlot)
		if err != nil {
			return nil, fmt.Errorf("common object %q: %w", o.Label, err)
		}
		p.Objects = append(p.Objects, Ref{
			Type:      o.Type,
			OldSlot:   oldSlot,
			NewSlot:   newSlot,
			OldOffset: o.OldOffset,
			NewOffset: o.NewOffset,
		})
	}

	for _, r := range types {
		t := &Type{ID: r.Type, Encoding: r.Encoding}
		if r.Base != nil {
			t.Base = *r.Base
		}
		var err error
		if t.OldBytes, err = parseSize(r.OldNumberOfBytes); err != nil {
			return nil, fmt.Errorf("type %s: %w", r.Type, err)
		}
		if t.NewBytes, err = parseSize(r.NewNumberOfBytes); err != nil {
			return nil, fmt.Errorf("type %s: %w", r.Type, err)
		}
		for _, m := range r.Members {
			oldSlot, err := parseHash(m.OldSlot)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", r.Type, err)
			}
			newSlot, err := parseHash(m.NewSlot)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", r.Type, err)
			}
			t.Members = append(t.Members, Member{
				Type:      m.Type,
				OldSlot:   slotInt(oldSlot),
				NewSlot:   slotInt(newSlot),
				OldOffset: m.OldOffset,
				NewOffset: m.NewOffset,
			})
		}
		p.Types[t.ID] = t
	}

	for _, o := range p.Objects {
		if _, ok := p.Types[o.Type]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, o.Type)
		}
	}
	return p, nil
}

// ReadPlan loads both records from dir.
func ReadPlan(dir string, names format.Files) (*Plan, error) {
	var objects []format.CommonObjectRecord
	if err := readJSON(filepath.Join(dir, names.CommonObjects), &objects); err != nil {
		return nil, err
	}
	var types []format.TypeRecord
	if err := readJSON(filepath.Join(dir, names.Types), &types); err != nil {
		return nil, err
	}
	return NewPlan(objects, types)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func parseHash(s string) (common.Hash, error) {
	var h common.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return common.Hash{}, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	return h, nil
}

func parseSize(n json.Number) (uint64, error) {
	v, err := uint256.FromDecimal(n.String())
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", n, err)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s bytes", ErrTypeTooLarge, n)
	}
	return v.Uint64(), nil
}

func isIndirect(encoding string) bool {
	return encoding == layout.EncodingDynamicArray || encoding == layout.EncodingBytes
}
