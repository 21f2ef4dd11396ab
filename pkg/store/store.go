// Package store holds the canonical nodes and edges of the graph being edited.
//
// The [Store] is the only mutable graph state. Every change goes through one
// of its operations, which keeps the graph invariants in one place:
//
//   - node ids are unique
//   - every edge references two nodes currently in the store
//   - an edge joins a source handle to a target handle on different nodes
//
// Caller-recoverable conditions (updating a missing node, a rejected
// connection) degrade to logged no-ops. Only a duplicate node id, which means
// the id generator was bypassed, is returned as an error.
//
// Dependents observe changes with [Store.Subscribe]. Listeners run after the
// store lock is released, so they may read or mutate the store themselves.
package store

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

// HandleResolver reports the direction of a handle on a node.
// ok is false when node has no handle with that id.
type HandleResolver interface {
	HandleDirection(node graph.Node, handleID string) (dir graph.Direction, ok bool)
}

// Connection is an edge candidate produced by a connect gesture.
type Connection struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// PositionChange moves one node.
type PositionChange struct {
	ID       string
	Position graph.Position
}

// Store is the graph state. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	nodes    []graph.Node
	index    map[string]int // node id -> position in nodes
	edges    []graph.Edge
	resolver HandleResolver

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for no-op diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolver sets the handle resolver used to validate connections.
func WithResolver(r HandleResolver) Option {
	return func(s *Store) { s.resolver = r }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		index:  make(map[string]int),
		subs:   make(map[int]func(Event)),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetResolver replaces the handle resolver. Without a resolver, connections
// are accepted whenever both nodes exist.
func (s *Store) SetResolver(r HandleResolver) {
	s.mu.Lock()
	s.resolver = r
	s.mu.Unlock()
}

// AddNode appends n. Its data always ends up holding the node's id and type.
func (s *Store) AddNode(n graph.Node) error {
	if n.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "node id cannot be empty")
	}
	n = n.Clone()
	if n.Data == nil {
		n.Data = graph.Data{}
	}
	n.Data[graph.DataKeyID] = n.ID
	n.Data[graph.DataKeyType] = n.Type

	s.mu.Lock()
	if _, exists := s.index[n.ID]; exists {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeDuplicateID, "node %q already exists", n.ID)
	}
	s.index[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	s.mu.Unlock()

	s.logger.Debug("node added", "id", n.ID, "type", n.Type)
	s.emit(Event{Kind: NodeAdded, NodeID: n.ID, Node: n.Clone()})
	return nil
}

// RemoveNode deletes the node and every edge touching it.
// It reports whether the node existed.
func (s *Store) RemoveNode(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("remove: node not found", "id", id)
		return false
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	s.reindex()

	var removed []graph.Edge
	s.edges = slices.DeleteFunc(s.edges, func(e graph.Edge) bool {
		if e.Source == id || e.Target == id {
			removed = append(removed, e)
			return true
		}
		return false
	})
	s.mu.Unlock()

	events := make([]Event, 0, len(removed)+1)
	for _, e := range removed {
		events = append(events, Event{Kind: EdgeRemoved, EdgeID: e.ID, Edge: e})
	}
	events = append(events, Event{Kind: NodeRemoved, NodeID: id})
	s.logger.Debug("node removed", "id", id, "edges", len(removed))
	s.emit(events...)
	return true
}

// UpdateNodeField sets data[key] = value on node id.
//
// A missing node is logged and ignored. The identity keys "id" and "type"
// cannot be changed. Writing the value already stored is a silent no-op.
func (s *Store) UpdateNodeField(id, key string, value any) {
	if key == graph.DataKeyID || key == graph.DataKeyType {
		s.logger.Warn("update: identity key is read-only", "id", id, "key", key)
		return
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("update: node not found", "id", id, "key", key)
		return
	}
	n := &s.nodes[i]
	if old, had := n.Data[key]; had && graph.SameValue(old, value) {
		s.mu.Unlock()
		return
	}
	// Copy on write: snapshots handed out earlier keep the old map.
	data := make(graph.Data, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	data[key] = value
	n.Data = data
	updated := n.Clone()
	s.mu.Unlock()

	s.emit(Event{Kind: NodeUpdated, NodeID: id, Key: key, Node: updated})
}

// ApplyPositionChanges moves nodes. Unknown ids are skipped.
// It returns the number of nodes moved.
func (s *Store) ApplyPositionChanges(changes []PositionChange) int {
	if len(changes) == 0 {
		return 0
	}

	s.mu.Lock()
	moved := make([]string, 0, len(changes))
	for _, c := range changes {
		i, ok := s.index[c.ID]
		if !ok {
			s.logger.Debug("move: node not found", "id", c.ID)
			continue
		}
		s.nodes[i].Position = c.Position
		moved = append(moved, c.ID)
	}
	s.mu.Unlock()

	if len(moved) > 0 {
		s.emit(Event{Kind: NodesMoved, NodeIDs: moved})
	}
	return len(moved)
}

// ValidateConnection checks c against the current graph without mutating it.
// The returned error carries CONNECTION_REJECTED.
func (s *Store) ValidateConnection(c Connection) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateLocked(c)
}

// ApplyConnection adds the edge described by c if it is valid.
// A rejected candidate leaves the store unchanged and returns false.
func (s *Store) ApplyConnection(c Connection) (graph.Edge, bool) {
	s.mu.Lock()
	if err := s.validateLocked(c); err != nil {
		s.mu.Unlock()
		s.logger.Debug("connection rejected", "source", c.Source, "target", c.Target, "reason", errors.UserMessage(err))
		return graph.Edge{}, false
	}
	e := graph.Edge{
		ID:           graph.EdgeID(c.Source, c.SourceHandle, c.Target, c.TargetHandle),
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	}
	s.edges = append(s.edges, e)
	s.mu.Unlock()

	s.logger.Debug("edge added", "id", e.ID)
	s.emit(Event{Kind: EdgeAdded, EdgeID: e.ID, Edge: e})
	return e, true
}

func (s *Store) validateLocked(c Connection) error {
	reject := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeConnectionRejected, format, args...)
	}

	if c.Source == c.Target {
		return reject("self-loop on %q", c.Source)
	}
	src, ok := s.nodeLocked(c.Source)
	if !ok {
		return reject("source node %q not found", c.Source)
	}
	dst, ok := s.nodeLocked(c.Target)
	if !ok {
		return reject("target node %q not found", c.Target)
	}

	if s.resolver != nil {
		if dir, ok := s.resolver.HandleDirection(src, c.SourceHandle); !ok {
			return reject("handle %q not found on %q", c.SourceHandle, c.Source)
		} else if dir != graph.DirSource {
			return reject("handle %q is not a source", c.SourceHandle)
		}
		if dir, ok := s.resolver.HandleDirection(dst, c.TargetHandle); !ok {
			return reject("handle %q not found on %q", c.TargetHandle, c.Target)
		} else if dir != graph.DirTarget {
			return reject("handle %q is not a target", c.TargetHandle)
		}
	}

	for _, e := range s.edges {
		if e.Source == c.Source && e.SourceHandle == c.SourceHandle &&
			e.Target == c.Target && e.TargetHandle == c.TargetHandle {
			return reject("edge %s already exists", e.ID)
		}
	}
	return nil
}

// RemoveEdge deletes the edge with the given id and reports whether it existed.
func (s *Store) RemoveEdge(id string) bool {
	s.mu.Lock()
	i := slices.IndexFunc(s.edges, func(e graph.Edge) bool { return e.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	e := s.edges[i]
	s.edges = slices.Delete(s.edges, i, i+1)
	s.mu.Unlock()

	s.emit(Event{Kind: EdgeRemoved, EdgeID: id, Edge: e})
	return true
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (graph.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodeLocked(id)
	if !ok {
		return graph.Node{}, false
	}
	return n.Clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []graph.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graph.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (s *Store) Edges() []graph.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges)
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() graph.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.Pipeline{Nodes: s.nodes, Edges: s.edges}.Clone()
}

// Counts returns the number of nodes and edges.
func (s *Store) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

func (s *Store) nodeLocked(id string) (graph.Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return graph.Node{}, false
	}
	return s.nodes[i], true
}

func (s *Store) reindex() {
	clear(s.index)
	for i, n := range s.nodes {
		s.index[n.ID] = i
	}
}
