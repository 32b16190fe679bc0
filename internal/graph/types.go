// Package graph provides the type dependency graph of a comparison and the
// ordering algorithms over it.
package graph

// Node represents a type in the dependency graph.
type Node struct {
	ID       string // canonical type identifier
	Label    string
	Encoding string
	IsRoot   bool // type of at least one common object
}

// Edge is a dependency relationship: To is built from From.
type Edge struct {
	From string // dependency (base or member type)
	To   string // dependent type
}

// Edge kinds.
const (
	EdgeBase   = "base"
	EdgeMember = "member"
)

// EdgeMeta describes why a dependent type refers to its dependency.
type EdgeMeta struct {
	Kind    string   // EdgeBase or EdgeMember
	Members []string // member labels for EdgeMember edges
}

// Graph represents the dependency structure of the merged types.
type Graph struct {
	Nodes        map[string]*Node
	Dependents   map[string][]string // type -> types that reference it (outgoing edges)
	Dependencies map[string][]string // type -> types it references (incoming edges)
	Recursive    []Edge              // element references left out of ordering
	order        []string            // node insertion order
	edgeMetadata map[Edge]*EdgeMeta
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:        make(map[string]*Node),
		Dependents:   make(map[string][]string),
		Dependencies: make(map[string][]string),
		edgeMetadata: make(map[Edge]*EdgeMeta),
	}
}

// AddNode adds a type node to the graph. Re-adding an identifier replaces
// the node but keeps its original position.
// If node is nil, a new node with default values is created.
func (g *Graph) AddNode(id string, node *Node) {
	if node == nil {
		node = &Node{}
	}
	node.ID = id
	if _, exists := g.Nodes[id]; !exists {
		g.order = append(g.order, id)
	}
	g.Nodes[id] = node
}

// AddEdge records that dependent refers to dependency. Repeated edges are
// merged; member labels accumulate in the edge metadata.
func (g *Graph) AddEdge(dependency, dependent, kind, member string) {
	edge := Edge{From: dependency, To: dependent}
	meta, exists := g.edgeMetadata[edge]
	if !exists {
		g.Dependents[dependency] = append(g.Dependents[dependency], dependent)
		g.Dependencies[dependent] = append(g.Dependencies[dependent], dependency)
		meta = &EdgeMeta{Kind: kind}
		g.edgeMetadata[edge] = meta
	}
	if kind == EdgeMember && member != "" {
		meta.Kind = EdgeMember
		meta.Members = append(meta.Members, member)
	}
}

// Reaches reports whether to depends on from, directly or transitively.
func (g *Graph) Reaches(from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.Dependents[id] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// GetDependents returns the types that directly reference id.
func (g *Graph) GetDependents(id string) []string {
	return g.Dependents[id]
}

// GetDependencies returns the types id directly references.
func (g *Graph) GetDependencies(id string) []string {
	return g.Dependencies[id]
}

// GetNode returns the node for an identifier, or nil if not found.
func (g *Graph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// GetEdgeMeta returns metadata for an edge, or nil if not found.
func (g *Graph) GetEdgeMeta(dependency, dependent string) *EdgeMeta {
	return g.edgeMetadata[Edge{From: dependency, To: dependent}]
}

// HasNode returns true if the graph contains a node with the given id.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.Nodes[id]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edgeMetadata)
}

// AllNodes returns all type identifiers in insertion order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, len(g.order))
	copy(nodes, g.order)
	return nodes
}

// AllEdges returns all edges, grouped by dependency in insertion order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, from := range g.order {
		for _, to := range g.Dependents[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Roots returns the types of common objects in insertion order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if g.Nodes[id].IsRoot {
			roots = append(roots, id)
		}
	}
	return roots
}

// LeafNodes returns all types with no dependencies.
func (g *Graph) LeafNodes() []string {
	var leaves []string
	for _, id := range g.order {
		if len(g.Dependencies[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// InDegree returns the number of dependencies of a node.
func (g *Graph) InDegree(id string) int {
	return len(g.Dependencies[id])
}

// OutDegree returns the number of dependents of a node.
func (g *Graph) OutDegree(id string) int {
	return len(g.Dependents[id])
}
