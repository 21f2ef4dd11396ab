package store

import (
	"maps"
	"slices"

	"github.com/matzehuels/pipewright/pkg/graph"
)

// EventKind identifies a store mutation.
type EventKind int

const (
	NodeAdded EventKind = iota
	NodeRemoved
	NodeUpdated
	NodesMoved
	EdgeAdded
	EdgeRemoved
)

func (k EventKind) String() string {
	switch k {
	case NodeAdded:
		return "node_added"
	case NodeRemoved:
		return "node_removed"
	case NodeUpdated:
		return "node_updated"
	case NodesMoved:
		return "nodes_moved"
	case EdgeAdded:
		return "edge_added"
	case EdgeRemoved:
		return "edge_removed"
	default:
		return "unknown"
	}
}

// Event describes one mutation. Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	NodeID  string     // NodeAdded, NodeRemoved, NodeUpdated
	Key     string     // NodeUpdated: the data key written
	Node    graph.Node // NodeAdded, NodeUpdated: copy of the node after the change
	NodeIDs []string   // NodesMoved
	EdgeID  string     // EdgeAdded, EdgeRemoved
	Edge    graph.Edge // EdgeAdded, EdgeRemoved
}

// Subscribe registers fn to be called after every mutation, in mutation order
// for a single writer. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(events ...Event) {
	s.subMu.Lock()
	keys := slices.Sorted(maps.Keys(s.subs))
	fns := make([]func(Event), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.subs[k])
	}
	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
