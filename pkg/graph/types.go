package graph

import (
	"maps"
	"reflect"
	"slices"
)

// Data keys that every node payload carries.
const (
	DataKeyID   = "id"
	DataKeyType = "type"
)

// Direction distinguishes outgoing from incoming connection points.
type Direction string

const (
	// DirSource marks an outgoing handle; edges start here.
	DirSource Direction = "source"
	// DirTarget marks an incoming handle; edges end here.
	DirTarget Direction = "target"
)

// Opposite returns the direction an edge must meet at its other end.
func (d Direction) Opposite() Direction {
	if d == DirSource {
		return DirTarget
	}
	return DirSource
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool { return d == DirSource || d == DirTarget }

// Position is a point in graph space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Data is the persisted payload of a node. Values are scalars, booleans or
// strings. It always contains at least "id" and "type".
type Data map[string]any

// Node is a single unit in the pipeline.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     Data     `json:"data"`
}

// NewNode creates a node whose data holds only its identity.
func NewNode(id, nodeType string, pos Position) Node {
	return Node{
		ID:       id,
		Type:     nodeType,
		Position: pos,
		Data:     Data{DataKeyID: id, DataKeyType: nodeType},
	}
}

// Clone returns a copy of the node with its own data map.
func (n Node) Clone() Node {
	n.Data = maps.Clone(n.Data)
	return n
}

// Value returns the persisted value for key and whether it is present.
func (n Node) Value(key string) (any, bool) {
	v, ok := n.Data[key]
	return v, ok
}

// SameValue reports whether two data values are equal.
// Values of different dynamic types (int 1 and float64 1) are not equal.
func SameValue(a, b any) bool { return reflect.DeepEqual(a, b) }

// Edge is a directed connection from a source handle to a target handle.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// EdgeID derives the identifier for a connection between two handles.
// The format matches the one produced by React Flow's addEdge so that ids stay
// stable across clients.
func EdgeID(source, sourceHandle, target, targetHandle string) string {
	return "reactflow__edge-" + source + sourceHandle + "-" + target + targetHandle
}

// Pipeline is the {nodes, edges} document submitted for validation.
type Pipeline struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of the pipeline.
func (p Pipeline) Clone() Pipeline {
	out := Pipeline{
		Nodes: make([]Node, len(p.Nodes)),
		Edges: slices.Clone(p.Edges),
	}
	for i, n := range p.Nodes {
		out.Nodes[i] = n.Clone()
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return out
}

// NodeCount returns the number of nodes.
func (p Pipeline) NodeCount() int { return len(p.Nodes) }

// EdgeCount returns the number of edges.
func (p Pipeline) EdgeCount() int { return len(p.Edges) }

// NodeIDs returns the set of node ids present in the pipeline.
func (p Pipeline) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(p.Nodes))
	for _, n := range p.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}
