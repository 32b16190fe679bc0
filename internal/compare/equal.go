package compare

import (
	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/layoutdiff/internal/layout"
)

// Engine decides whether a type of the old universe and a type of the new
// universe are the same type for migration purposes. The relation is
// directional and not necessarily symmetric.
type Engine struct {
	Policy MemberPolicy
}

// NewEngine creates an equality engine with the given member policy.
func NewEngine(policy MemberPolicy) *Engine {
	if policy == "" {
		policy = PartialMemberMatch
	}
	return &Engine{Policy: policy}
}

// Equal reports whether idOld in oldTypes and idNew in newTypes describe the
// same type. Identifiers must already be canonical. Neither universe is
// modified.
func (e *Engine) Equal(idOld, idNew string, oldTypes, newTypes *layout.Universe) (bool, error) {
	return e.equal(idOld, idNew, oldTypes, newTypes, make(map[string]int), 0)
}

// equal tracks the identifiers on the current recursion path together with
// the number of dynamic-array indirections crossed before reaching them.
// Reaching an identifier again through such an indirection is a recursive
// struct and is provisionally equal; reaching it inline is malformed input.
func (e *Engine) equal(idOld, idNew string, oldTypes, newTypes *layout.Universe, path map[string]int, indirections int) (bool, error) {
	if idOld != idNew {
		return false, nil
	}
	if seen, onPath := path[idOld]; onPath {
		if indirections > seen {
			return true, nil
		}
		return false, &TypeError{ID: idOld, Side: SideOld, Err: ErrTypeCycle}
	}
	path[idOld] = indirections
	defer delete(path, idOld)

	oldType, err := lookup(oldTypes, idOld, SideOld)
	if err != nil {
		return false, err
	}
	newType, err := lookup(newTypes, idNew, SideNew)
	if err != nil {
		return false, err
	}
	if err := checkShape(oldType, idOld, SideOld); err != nil {
		return false, err
	}
	if err := checkShape(newType, idNew, SideNew); err != nil {
		return false, err
	}

	// Aggregate sizes follow their member layout, so the width check only
	// applies when neither side reaches a struct through its bases.
	oldAggregate, err := containsAggregate(idOld, oldTypes, SideOld)
	if err != nil {
		return false, err
	}
	newAggregate, err := containsAggregate(idNew, newTypes, SideNew)
	if err != nil {
		return false, err
	}
	if !oldAggregate && !newAggregate && oldType.NumberOfBytes != newType.NumberOfBytes {
		return false, nil
	}

	if oldType.Label != newType.Label || oldType.Encoding != newType.Encoding {
		return false, nil
	}

	if oldType.HasBase() != newType.HasBase() {
		return false, nil
	}
	if oldType.HasBase() {
		next := indirections
		if oldType.Encoding == layout.EncodingDynamicArray {
			next++
		}
		eq, err := e.equal(oldType.Base, newType.Base, oldTypes, newTypes, path, next)
		if err != nil || !eq {
			return false, err
		}
	}

	if oldType.HasMembers() != newType.HasMembers() {
		return false, nil
	}
	if oldType.HasMembers() {
		return e.membersEqual(oldType, newType, oldTypes, newTypes, path, indirections)
	}

	return true, nil
}

func (e *Engine) membersEqual(oldType, newType *layout.TypeDescriptor, oldTypes, newTypes *layout.Universe, path map[string]int, indirections int) (bool, error) {
	if len(oldType.Members) == 0 || len(newType.Members) == 0 {
		return false, nil
	}

	oldMembers := membersByLabel(oldType.Members)
	newMembers := membersByLabel(newType.Members)

	shared, matched := 0, 0
	for el := oldMembers.Front(); el != nil; el = el.Next() {
		newMember, ok := newMembers.Get(el.Key)
		if !ok {
			continue
		}
		shared++
		eq, err := e.equal(el.Value.Type, newMember.Type, oldTypes, newTypes, path, indirections)
		if err != nil {
			return false, err
		}
		if eq {
			matched++
		}
	}

	switch e.Policy {
	case AllMemberMatch:
		return shared > 0 && matched == shared, nil
	default:
		return matched > 0, nil
	}
}

// membersByLabel indexes members by label in declaration order. A repeated
// label keeps its first position and its last definition.
func membersByLabel(members []layout.Member) *orderedmap.OrderedMap[string, layout.Member] {
	m := orderedmap.NewOrderedMap[string, layout.Member]()
	for _, member := range members {
		m.Set(member.Label, member)
	}
	return m
}

// containsAggregate follows base references from id and reports whether a
// struct is reached.
func containsAggregate(id string, types *layout.Universe, side Side) (bool, error) {
	seen := make(map[string]bool)
	for {
		if seen[id] {
			return false, &TypeError{ID: id, Side: side, Err: ErrTypeCycle}
		}
		seen[id] = true

		t, err := lookup(types, id, side)
		if err != nil {
			return false, err
		}
		if t.HasMembers() {
			return true, nil
		}
		if !t.HasBase() {
			return false, nil
		}
		id = t.Base
	}
}

func lookup(types *layout.Universe, id string, side Side) (*layout.TypeDescriptor, error) {
	t, ok := types.Get(id)
	if !ok {
		return nil, &TypeError{ID: id, Side: side, Err: ErrTypeNotFound}
	}
	return t, nil
}

func checkShape(t *layout.TypeDescriptor, id string, side Side) error {
	if t.Label == "" || t.Encoding == "" || t.NumberOfBytes == "" {
		return &TypeError{ID: id, Side: side, Err: ErrMalformedEquality}
	}
	return nil
}
