package compare

import (
	"github.com/holiman/uint256"

	"github.com/dbsmedya/layoutdiff/internal/layout"
	"github.com/dbsmedya/layoutdiff/internal/types"
)

// MergedMember is a struct member that exists in both layouts.
type MergedMember struct {
	layout.Member        // old-layout member, including bookkeeping fields
	OldSlot       string // decimal
	NewSlot       string // decimal
	OldOffset     uint64
	NewOffset     uint64
}

// MergedType is a type reachable from a common object, annotated with its
// sizes in both layouts.
type MergedType struct {
	ID               string
	Descriptor       *layout.TypeDescriptor // old-layout descriptor
	OldNumberOfBytes *uint256.Int
	NewNumberOfBytes *uint256.Int
	Base             string         // empty when the type has no base
	Members          []MergedMember // nil when the type is not an aggregate
}

// HasBase reports whether the merged type has an element type.
func (t *MergedType) HasBase() bool {
	return t.Base != ""
}

// Extractor walks the type graph below a set of common objects. The visited
// set is shared across all objects, so every identifier is emitted once.
type Extractor struct {
	oldTypes *layout.Universe
	newTypes *layout.Universe
	visited  map[string]bool
	result   []MergedType
	dropped  int
}

// NewExtractor creates an extractor over the two canonical universes.
func NewExtractor(oldTypes, newTypes *layout.Universe) *Extractor {
	return &Extractor{
		oldTypes: oldTypes,
		newTypes: newTypes,
		visited:  make(map[string]bool),
	}
}

// Extract returns the merged descriptor of every type reachable from the
// common objects through base and surviving-member references. A type is
// appended once its dependencies are, so leaves come first. Any missing
// type aborts the whole extraction.
func (x *Extractor) Extract(objects []CommonObject) ([]MergedType, error) {
	for _, obj := range objects {
		if !x.oldTypes.Has(obj.Type) {
			return nil, &TypeError{ID: obj.Type, Side: SideOld, Err: ErrTypeNotFound}
		}
		if err := x.process(obj.Type); err != nil {
			return nil, err
		}
	}
	return x.result, nil
}

// DroppedMembers returns how many old members had no counterpart by label.
func (x *Extractor) DroppedMembers() int {
	return x.dropped
}

func (x *Extractor) process(id string) error {
	if x.visited[id] {
		return nil
	}

	oldType, err := lookup(x.oldTypes, id, SideOld)
	if err != nil {
		return err
	}
	newType, err := lookup(x.newTypes, id, SideNew)
	if err != nil {
		return err
	}

	oldSize, err := types.ParseByteSize(oldType.NumberOfBytes)
	if err != nil {
		return &TypeError{ID: id, Side: SideOld, Err: ErrMalformedEquality}
	}
	newSize, err := types.ParseByteSize(newType.NumberOfBytes)
	if err != nil {
		return &TypeError{ID: id, Side: SideNew, Err: ErrMalformedEquality}
	}

	x.visited[id] = true

	merged := MergedType{
		ID:               id,
		Descriptor:       oldType.Clone(),
		OldNumberOfBytes: oldSize,
		NewNumberOfBytes: newSize,
		Base:             oldType.Base,
	}

	if oldType.HasBase() {
		if err := x.process(oldType.Base); err != nil {
			return err
		}
	}

	if oldType.HasMembers() {
		members, err := x.mergeMembers(oldType, newType)
		if err != nil {
			return err
		}
		merged.Members = members
	}

	x.result = append(x.result, merged)
	return nil
}

// mergeMembers builds a new list of the old members that still exist by
// label in the new type. If the new type is not an aggregate every member
// is dropped.
func (x *Extractor) mergeMembers(oldType, newType *layout.TypeDescriptor) ([]MergedMember, error) {
	newMembers := membersByLabel(newType.Members)

	members := make([]MergedMember, 0, len(oldType.Members))
	for _, member := range oldType.Members {
		newMember, ok := newMembers.Get(member.Label)
		if !ok {
			x.dropped++
			continue
		}
		members = append(members, MergedMember{
			Member:    member,
			OldSlot:   member.Slot,
			NewSlot:   newMember.Slot,
			OldOffset: member.Offset,
			NewOffset: newMember.Offset,
		})
		if err := x.process(member.Type); err != nil {
			return nil, err
		}
	}
	return members, nil
}

// Extract is a convenience wrapper around NewExtractor(...).Extract.
func Extract(oldTypes, newTypes *layout.Universe, objects []CommonObject) ([]MergedType, error) {
	return NewExtractor(oldTypes, newTypes).Extract(objects)
}
