package graph

import (
	"fmt"

	"github.com/dbsmedya/layoutdiff/internal/compare"
	"github.com/dbsmedya/layoutdiff/internal/layout"
)

// Builder constructs a dependency graph from merged type descriptors.
type Builder struct {
	types []compare.MergedType
	roots []string
}

// NewBuilder creates a new graph builder. roots are the types of the common
// objects; they may repeat.
func NewBuilder(types []compare.MergedType, roots []string) *Builder {
	return &Builder{types: types, roots: roots}
}

// Build adds one node per merged type, then one edge per base reference and
// per surviving member, and validates the result. A dynamic array whose
// element type already depends on the array is recorded in Graph.Recursive
// instead of as an edge.
func (b *Builder) Build() (*Graph, error) {
	g := NewGraph()

	for i := range b.types {
		t := &b.types[i]
		if t.ID == "" {
			return nil, fmt.Errorf("merged type at index %d has no identifier", i)
		}
		if g.HasNode(t.ID) {
			return nil, fmt.Errorf("duplicate type: %q appears multiple times", t.ID)
		}

		node := &Node{}
		if t.Descriptor != nil {
			node.Label = t.Descriptor.Label
			node.Encoding = t.Descriptor.Encoding
		}
		g.AddNode(t.ID, node)
	}

	for _, root := range b.roots {
		node := g.GetNode(root)
		if node == nil {
			return nil, fmt.Errorf("root type %q is not among the merged types", root)
		}
		node.IsRoot = true
	}

	// Element references of dynamic arrays are added last and only when they
	// do not close a loop, which is how recursive structs appear.
	var elementRefs []*compare.MergedType
	for i := range b.types {
		t := &b.types[i]
		if t.HasBase() {
			if !g.HasNode(t.Base) {
				return nil, fmt.Errorf("base %q of type %q is not among the merged types", t.Base, t.ID)
			}
			if t.Descriptor != nil && t.Descriptor.Encoding == layout.EncodingDynamicArray {
				elementRefs = append(elementRefs, t)
			} else {
				g.AddEdge(t.Base, t.ID, EdgeBase, "")
			}
		}
		for _, m := range t.Members {
			if !g.HasNode(m.Type) {
				return nil, fmt.Errorf("member %q of type %q refers to unknown type %q", m.Label, t.ID, m.Type)
			}
			g.AddEdge(m.Type, t.ID, EdgeMember, m.Label)
		}
	}

	for _, t := range elementRefs {
		if g.Reaches(t.ID, t.Base) {
			g.Recursive = append(g.Recursive, Edge{From: t.Base, To: t.ID})
			continue
		}
		g.AddEdge(t.Base, t.ID, EdgeBase, "")
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	return g, nil
}

// BuildFromTypes is a convenience function that builds a graph directly
// from merged types.
func BuildFromTypes(types []compare.MergedType, roots []string) (*Graph, error) {
	return NewBuilder(types, roots).Build()
}
