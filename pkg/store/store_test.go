package store

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

// suffixResolver treats handles ending in "-out" as sources and "-in" as targets.
type suffixResolver struct{}

func (suffixResolver) HandleDirection(n graph.Node, handleID string) (graph.Direction, bool) {
	switch handleID {
	case n.ID + "-out":
		return graph.DirSource, true
	case n.ID + "-in":
		return graph.DirTarget, true
	}
	return "", false
}

func quietStore(opts ...Option) *Store {
	return New(append([]Option{WithLogger(log.New(io.Discard))}, opts...)...)
}

func seeded(t *testing.T, ids ...string) *Store {
	t.Helper()
	s := quietStore(WithResolver(suffixResolver{}))
	for _, id := range ids {
		if err := s.AddNode(graph.NewNode(id, "text", graph.Position{})); err != nil {
			t.Fatalf("AddNode(%s) error: %v", id, err)
		}
	}
	return s
}

func connect(src, dst string) Connection {
	return Connection{Source: src, SourceHandle: src + "-out", Target: dst, TargetHandle: dst + "-in"}
}

func TestAddNode(t *testing.T) {
	s := quietStore()
	n := graph.Node{ID: "llm-0", Type: "llm", Position: graph.Position{X: 1, Y: 2}}
	if err := s.AddNode(n); err != nil {
		t.Fatalf("AddNode() error: %v", err)
	}

	got, ok := s.Node("llm-0")
	if !ok {
		t.Fatal("Node() not found")
	}
	if got.Data[graph.DataKeyID] != "llm-0" || got.Data[graph.DataKeyType] != "llm" {
		t.Errorf("data = %v, want identity keys", got.Data)
	}

	err := s.AddNode(n)
	if !errors.Is(err, errors.ErrCodeDuplicateID) {
		t.Errorf("AddNode(dup) error = %v, want DUPLICATE_ID", err)
	}
	if err := s.AddNode(graph.Node{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("AddNode(empty id) error = %v", err)
	}
}

func TestAddNodeCopiesData(t *testing.T) {
	s := quietStore()
	n := graph.NewNode("text-0", "text", graph.Position{})
	_ = s.AddNode(n)
	n.Data["text"] = "outside"

	got, _ := s.Node("text-0")
	if _, ok := got.Data["text"]; ok {
		t.Error("store shares the caller's data map")
	}
}

func TestReadsAreCopies(t *testing.T) {
	s := seeded(t, "a")
	s.UpdateNodeField("a", "text", "hello")

	nodes := s.Nodes()
	nodes[0].Data["text"] = "mutated"
	snap := s.Snapshot()
	snap.Nodes[0].Data["text"] = "mutated"

	got, _ := s.Node("a")
	if got.Data["text"] != "hello" {
		t.Errorf("store mutated through a read: %v", got.Data["text"])
	}
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	s := seeded(t, "a", "b", "c")
	s.ApplyConnection(connect("a", "b"))
	s.ApplyConnection(connect("b", "c"))
	s.ApplyConnection(connect("a", "c"))

	if !s.RemoveNode("b") {
		t.Fatal("RemoveNode() = false")
	}
	if s.RemoveNode("b") {
		t.Error("RemoveNode() twice = true")
	}

	edges := s.Edges()
	if len(edges) != 1 || edges[0].Source != "a" || edges[0].Target != "c" {
		t.Errorf("edges = %+v, want only a->c", edges)
	}
	if _, ok := s.Node("c"); !ok {
		t.Error("index broken after removal")
	}
}

func TestUpdateNodeField(t *testing.T) {
	s := seeded(t, "a")
	s.UpdateNodeField("a", "text", "hi")

	got, _ := s.Node("a")
	if got.Data["text"] != "hi" {
		t.Errorf("text = %v, want hi", got.Data["text"])
	}

	before := s.Snapshot()
	s.UpdateNodeField("missing", "text", "x")
	s.UpdateNodeField("a", graph.DataKeyID, "other")
	after := s.Snapshot()
	if after.Nodes[0].Data[graph.DataKeyID] != "a" || len(after.Nodes) != len(before.Nodes) {
		t.Errorf("no-op updates changed state: %+v", after)
	}
}

func TestUpdateNodeFieldEvents(t *testing.T) {
	s := seeded(t, "a")
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.UpdateNodeField("a", "k", 1.0)
	s.UpdateNodeField("a", "k", 1.0) // unchanged
	s.UpdateNodeField("gone", "k", 1.0)

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != NodeUpdated || ev.NodeID != "a" || ev.Key != "k" || ev.Node.Data["k"] != 1.0 {
		t.Errorf("event = %+v", ev)
	}
}

func TestApplyPositionChanges(t *testing.T) {
	s := seeded(t, "a", "b")
	n := s.ApplyPositionChanges([]PositionChange{
		{ID: "a", Position: graph.Position{X: 10, Y: 20}},
		{ID: "ghost", Position: graph.Position{X: 1}},
	})
	if n != 1 {
		t.Errorf("moved = %d, want 1", n)
	}
	got, _ := s.Node("a")
	if got.Position != (graph.Position{X: 10, Y: 20}) {
		t.Errorf("position = %+v", got.Position)
	}
}

func TestApplyConnection(t *testing.T) {
	tests := []struct {
		name string
		c    Connection
		ok   bool
	}{
		{name: "Valid", c: connect("a", "b"), ok: true},
		{name: "SelfLoop", c: connect("a", "a")},
		{name: "MissingSource", c: connect("ghost", "b")},
		{name: "MissingTarget", c: connect("a", "ghost")},
		{name: "Reversed", c: Connection{Source: "a", SourceHandle: "a-in", Target: "b", TargetHandle: "b-out"}},
		{name: "BothSources", c: Connection{Source: "a", SourceHandle: "a-out", Target: "b", TargetHandle: "b-out"}},
		{name: "UnknownHandle", c: Connection{Source: "a", SourceHandle: "a-x", Target: "b", TargetHandle: "b-in"}},
		{name: "ForeignHandle", c: Connection{Source: "a", SourceHandle: "b-out", Target: "b", TargetHandle: "b-in"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t, "a", "b")
			before := s.Snapshot()

			e, ok := s.ApplyConnection(tt.c)
			if ok != tt.ok {
				t.Fatalf("ApplyConnection() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				if err := s.ValidateConnection(tt.c); !errors.Is(err, errors.ErrCodeConnectionRejected) {
					t.Errorf("ValidateConnection() = %v, want CONNECTION_REJECTED", err)
				}
				if after := s.Snapshot(); len(after.Edges) != len(before.Edges) {
					t.Error("rejected connection mutated edges")
				}
				return
			}
			if e.ID != "reactflow__edge-aa-out-bb-in" {
				t.Errorf("edge id = %s", e.ID)
			}
		})
	}
}

func TestApplyConnectionRejectsDuplicate(t *testing.T) {
	s := seeded(t, "a", "b")
	if _, ok := s.ApplyConnection(connect("a", "b")); !ok {
		t.Fatal("first connection rejected")
	}
	if _, ok := s.ApplyConnection(connect("a", "b")); ok {
		t.Error("duplicate connection accepted")
	}
	if _, edges := s.Counts(); edges != 1 {
		t.Errorf("edges = %d, want 1", edges)
	}
}

func TestApplyConnectionWithoutResolver(t *testing.T) {
	s := quietStore()
	_ = s.AddNode(graph.NewNode("a", "text", graph.Position{}))
	_ = s.AddNode(graph.NewNode("b", "text", graph.Position{}))
	if _, ok := s.ApplyConnection(Connection{Source: "a", Target: "b"}); !ok {
		t.Error("connection between existing nodes rejected")
	}
}

func TestRemoveEdge(t *testing.T) {
	s := seeded(t, "a", "b")
	e, _ := s.ApplyConnection(connect("a", "b"))
	if !s.RemoveEdge(e.ID) {
		t.Error("RemoveEdge() = false")
	}
	if s.RemoveEdge(e.ID) {
		t.Error("RemoveEdge() twice = true")
	}
}

func TestSubscribeOrderAndUnsubscribe(t *testing.T) {
	s := seeded(t, "a", "b")
	var kinds []string
	unsub := s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind.String()) })

	s.ApplyConnection(connect("a", "b"))
	s.RemoveNode("a")
	unsub()
	s.RemoveNode("b")

	want := "edge_added,edge_removed,node_removed"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestSubscriberMayMutate(t *testing.T) {
	s := seeded(t)
	s.Subscribe(func(ev Event) {
		if ev.Kind == NodeAdded {
			s.UpdateNodeField(ev.NodeID, "text", "filled")
		}
	})

	_ = s.AddNode(graph.NewNode("a", "text", graph.Position{}))
	got, _ := s.Node("a")
	if got.Data["text"] != "filled" {
		t.Errorf("text = %v, want filled", got.Data["text"])
	}
}
