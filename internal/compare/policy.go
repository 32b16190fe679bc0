package compare

import "fmt"

// MemberPolicy decides when two aggregates with overlapping member labels
// are considered the same type.
type MemberPolicy string

const (
	// PartialMemberMatch accepts the aggregates if at least one shared member
	// label has equal types on both sides.
	PartialMemberMatch MemberPolicy = "partial"
	// AllMemberMatch requires every shared member label to have equal types,
	// and at least one label to be shared.
	AllMemberMatch MemberPolicy = "all"
)

// ParseMemberPolicy converts a configuration value. Empty selects PartialMemberMatch.
func ParseMemberPolicy(s string) (MemberPolicy, error) {
	switch MemberPolicy(s) {
	case "", PartialMemberMatch:
		return PartialMemberMatch, nil
	case AllMemberMatch:
		return AllMemberMatch, nil
	default:
		return "", fmt.Errorf("invalid member policy %q (must be 'partial' or 'all')", s)
	}
}

// MatchPolicy decides how old and new storage entries pair up.
type MatchPolicy string

const (
	// MatchManyToMany emits every (old, new) pair whose labels and types
	// match. One entry may appear in several common objects.
	MatchManyToMany MatchPolicy = "many-to-many"
	// MatchOneToOne uses every old and new entry at most once; the first
	// matching new entry in document order wins.
	MatchOneToOne MatchPolicy = "one-to-one"
)

// ParseMatchPolicy converts a configuration value. Empty selects MatchManyToMany.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(s) {
	case "", MatchManyToMany:
		return MatchManyToMany, nil
	case MatchOneToOne:
		return MatchOneToOne, nil
	default:
		return "", fmt.Errorf("invalid match policy %q (must be 'many-to-many' or 'one-to-one')", s)
	}
}
