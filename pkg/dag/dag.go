package dag

import (
	"errors"
	"slices"

	"github.com/matzehuels/pipewright/pkg/graph"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a cycle is detected.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Graph is a directed graph over node ids.
//
// The zero value is not usable - use New to create a valid Graph instance.
type Graph struct {
	order    []string            // insertion order, for deterministic traversal
	nodes    map[string]struct{} // node set
	outgoing map[string][]string // nodeID -> successor IDs
	edges    int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]struct{}),
		outgoing: make(map[string][]string),
	}
}

// FromPipeline builds a graph from a pipeline document.
// Edges whose source or target is not a node of the pipeline are skipped and
// counted in the second return value. Duplicate node ids collapse into one.
func FromPipeline(p graph.Pipeline) (*Graph, int) {
	g := New()
	for _, n := range p.Nodes {
		_ = g.AddNode(n.ID)
	}
	skipped := 0
	for _, e := range p.Edges {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			skipped++
		}
	}
	return g, skipped
}

// AddNode adds a node. Returns ErrInvalidNodeID if id is empty, or
// ErrDuplicateNodeID if the node already exists.
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[id]; exists {
		return ErrDuplicateNodeID
	}
	g.nodes[id] = struct{}{}
	g.order = append(g.order, id)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Multiple edges between the same nodes are allowed; each counts separately.
func (g *Graph) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[to]; !ok {
		return ErrUnknownTargetNode
	}
	g.outgoing[from] = append(g.outgoing[from], to)
	g.edges++
	return nil
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return g.edges }

// Successors returns the ids the node has edges to, in insertion order.
func (g *Graph) Successors(id string) []string { return slices.Clone(g.outgoing[id]) }

// IsAcyclic reports whether the graph has no directed cycle.
func (g *Graph) IsAcyclic() bool { return g.Validate() == nil }

// Validate returns ErrGraphHasCycle if the graph contains a directed cycle.
func (g *Graph) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, next := range g.outgoing[id] {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for _, id := range g.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}
