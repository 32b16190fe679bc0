package layout

import (
	"fmt"
	"regexp"
)

// CollisionPolicy decides what happens when canonicalization maps two
// identifiers of one universe onto the same key.
type CollisionPolicy string

const (
	// CollisionReplace keeps the descriptor canonicalized last.
	CollisionReplace CollisionPolicy = "replace"
	// CollisionFail aborts canonicalization.
	CollisionFail CollisionPolicy = "error"
)

// ParseCollisionPolicy converts a configuration value to a CollisionPolicy.
// An empty string selects CollisionReplace.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(s) {
	case "", CollisionReplace:
		return CollisionReplace, nil
	case CollisionFail:
		return CollisionFail, nil
	default:
		return "", fmt.Errorf("invalid collision policy %q (must be 'replace' or 'error')", s)
	}
}

// structSuffix matches the AST id solc appends to storage struct identifiers:
// t_struct(Vault.Position)42_storage. The name part never spans parentheses.
var structSuffix = regexp.MustCompile(`t_struct\(([^()]*)\)[a-zA-Z0-9]+_storage`)

// CanonicalID strips compilation-specific struct suffixes from id, so that
// the same struct compiled twice yields the same identifier. It is idempotent.
func CanonicalID(id string) string {
	return structSuffix.ReplaceAllString(id, "t_struct(${1})_storage")
}

// Canonicalize returns a copy of l with every type reference rewritten by
// CanonicalID: storage entry types, universe keys, base, key and value
// references, and member types. l itself is left untouched.
//
// Collisions are returned in encounter order. Under CollisionReplace a
// descriptor whose identifier carried a suffix wins over one whose identifier
// was already canonical, wherever either appears; otherwise the later
// descriptor wins. The key keeps the position it was first seen at. Under
// CollisionFail a *CollisionError is returned.
func Canonicalize(l *Layout, policy CollisionPolicy) (*Layout, []Collision, error) {
	out := &Layout{
		Storage: make([]StorageEntry, len(l.Storage)),
		Types:   NewUniverse(),
	}

	for i, entry := range l.Storage {
		entry.Type = CanonicalID(entry.Type)
		out.Storage[i] = entry
	}

	var collisions []Collision
	origin := make(map[string]string, l.Types.Len())

	l.Types.Each(func(id string, t *TypeDescriptor) {
		c := t.Clone()
		c.Base = CanonicalID(c.Base)
		c.Key = CanonicalID(c.Key)
		c.Value = CanonicalID(c.Value)
		for i := range c.Members {
			c.Members[i].Type = CanonicalID(c.Members[i].Type)
		}

		key := CanonicalID(id)
		if prev, exists := origin[key]; exists {
			if id == key && prev != key {
				// A rewritten identifier beats one that was canonical as written.
				collisions = append(collisions, Collision{Canonical: key, Kept: prev, Replaced: id})
				return
			}
			collisions = append(collisions, Collision{Canonical: key, Kept: id, Replaced: prev})
		}
		origin[key] = id
		out.Types.Set(key, c)
	})

	if len(collisions) > 0 && policy == CollisionFail {
		return nil, collisions, &CollisionError{Collisions: collisions}
	}

	return out, collisions, nil
}
