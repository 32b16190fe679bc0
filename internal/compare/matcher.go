package compare

import (
	"fmt"

	"github.com/dbsmedya/layoutdiff/internal/layout"
	"github.com/dbsmedya/layoutdiff/internal/types"
)

// CommonObject is a storage entry present in both layouts with an equal type.
type CommonObject struct {
	Label     string
	Type      string // canonical identifier
	OldSlot   string // 0x-prefixed, 64 hex digits
	NewSlot   string
	OldOffset uint64
	NewOffset uint64
}

// Matcher pairs old and new storage entries.
type Matcher struct {
	engine *Engine
	policy MatchPolicy
}

// NewMatcher creates a matcher using engine for type equality.
func NewMatcher(engine *Engine, policy MatchPolicy) *Matcher {
	if policy == "" {
		policy = MatchManyToMany
	}
	return &Matcher{engine: engine, policy: policy}
}

// Match returns a CommonObject for every old/new entry pair with the same
// label and equal types, in old-entry then new-entry order. Under
// MatchManyToMany the full cross product is reported, duplicates included.
func (m *Matcher) Match(oldEntries, newEntries []layout.StorageEntry, oldTypes, newTypes *layout.Universe) ([]CommonObject, error) {
	var objects []CommonObject
	usedNew := make(map[int]bool)

	for _, oldEntry := range oldEntries {
		for j, newEntry := range newEntries {
			if m.policy == MatchOneToOne && usedNew[j] {
				continue
			}
			if oldEntry.Label != newEntry.Label {
				continue
			}

			eq, err := m.engine.Equal(oldEntry.Type, newEntry.Type, oldTypes, newTypes)
			if err != nil {
				return nil, fmt.Errorf("comparing %q: %w", oldEntry.Label, err)
			}
			if !eq {
				continue
			}

			obj, err := newCommonObject(oldEntry, newEntry)
			if err != nil {
				return nil, err
			}
			objects = append(objects, obj)

			if m.policy == MatchOneToOne {
				usedNew[j] = true
				break
			}
		}
	}

	return objects, nil
}

func newCommonObject(oldEntry, newEntry layout.StorageEntry) (CommonObject, error) {
	oldSlot, err := types.FormatSlot(oldEntry.Slot)
	if err != nil {
		return CommonObject{}, fmt.Errorf("old slot of %q: %w", oldEntry.Label, err)
	}
	newSlot, err := types.FormatSlot(newEntry.Slot)
	if err != nil {
		return CommonObject{}, fmt.Errorf("new slot of %q: %w", newEntry.Label, err)
	}
	return CommonObject{
		Label:     oldEntry.Label,
		Type:      oldEntry.Type,
		OldSlot:   oldSlot,
		NewSlot:   newSlot,
		OldOffset: oldEntry.Offset,
		NewOffset: newEntry.Offset,
	}, nil
}

// Match is a convenience wrapper around NewMatcher(engine, policy).Match.
func Match(oldEntries, newEntries []layout.StorageEntry, oldTypes, newTypes *layout.Universe, engine *Engine, policy MatchPolicy) ([]CommonObject, error) {
	return NewMatcher(engine, policy).Match(oldEntries, newEntries, oldTypes, newTypes)
}
