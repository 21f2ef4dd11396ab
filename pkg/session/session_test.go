package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/canvas"
	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/nodetype"
	"github.com/matzehuels/pipewright/pkg/store"
	"github.com/matzehuels/pipewright/pkg/submit"
)

var quiet = log.New(io.Discard)

func newSession(t *testing.T, client submit.Submitter) *Session {
	t.Helper()
	reg := nodetype.NewRegistry()
	if err := nodetype.RegisterBuiltins(reg); err != nil {
		t.Fatal(err)
	}
	reg.Seal()
	if client == nil {
		client = submit.NewClient("http://127.0.0.1:1/pipelines/parse", submit.WithLogger(quiet))
	}
	s := New(reg, client, Options{Logger: quiet})
	t.Cleanup(s.Close)
	return s
}

func drop(t *testing.T, s *Session, nodeType string) graph.Node {
	t.Helper()
	n, ok, err := s.Drop(canvas.Point{X: 100, Y: 100}, nodeType)
	if err != nil || !ok {
		t.Fatalf("Drop(%s) = ok %v, err %v", nodeType, ok, err)
	}
	return n
}

func TestDropMountsAndBackfills(t *testing.T) {
	s := newSession(t, nil)
	n := drop(t, s, nodetype.TypeInput)

	if n.ID != "customInput-0" {
		t.Errorf("id = %s", n.ID)
	}
	if n.Data["inputName"] != "input_0" || n.Data["inputType"] != "Text" {
		t.Errorf("data = %v, want backfilled defaults", n.Data)
	}
	if _, err := s.Editor(n.ID); err != nil {
		t.Errorf("editor not mounted: %v", err)
	}

	second := drop(t, s, nodetype.TypeInput)
	if second.Data["inputName"] != "input_1" {
		t.Errorf("second inputName = %v, want input_1", second.Data["inputName"])
	}
}

func TestDropUnknownType(t *testing.T) {
	s := newSession(t, nil)
	_, ok, err := s.Drop(canvas.Point{}, "mystery")
	if ok || !errors.Is(err, errors.ErrCodeUnknownNodeType) {
		t.Errorf("Drop(mystery) = ok %v, err %v", ok, err)
	}
	if st := s.Stats(); st.Nodes != 0 {
		t.Errorf("nodes = %d, want 0", st.Nodes)
	}
}

func TestDropEmptyTypeIgnored(t *testing.T) {
	s := newSession(t, nil)
	for _, payload := range []string{"", "{}", "not json", `{"nodeType":""}`} {
		_, ok, err := s.DropPayload(canvas.Point{}, payload)
		if ok || err != nil {
			t.Errorf("DropPayload(%q) = ok %v, err %v", payload, ok, err)
		}
	}
	if st := s.Stats(); st.Nodes != 0 {
		t.Errorf("nodes = %d, want 0", st.Nodes)
	}
}

func TestDropUsesViewport(t *testing.T) {
	s := newSession(t, nil)
	if err := s.SetViewport(canvas.Viewport{X: 50, Y: 20, Zoom: 2}); err != nil {
		t.Fatal(err)
	}
	n, _, err := s.DropPayload(canvas.Point{X: 250, Y: 220}, canvas.EncodeDropPayload(nodetype.TypeText))
	if err != nil {
		t.Fatal(err)
	}
	if n.Position != (graph.Position{X: 100, Y: 100}) {
		t.Errorf("position = %+v, want {100 100}", n.Position)
	}
	if err := s.SetViewport(canvas.Viewport{Zoom: -1}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetViewport(negative zoom) error = %v", err)
	}
}

func TestSetFieldWritesThrough(t *testing.T) {
	s := newSession(t, nil)
	n := drop(t, s, nodetype.TypeMath)

	if err := s.SetField(n.ID, "operand", "2.5"); err != nil {
		t.Fatalf("SetField() error: %v", err)
	}
	got, _ := s.Store().Node(n.ID)
	if got.Data["operand"] != 2.5 {
		t.Errorf("operand = %v, want 2.5", got.Data["operand"])
	}

	if err := s.SetField(n.ID, "operation", "modulo"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetField(bad option) error = %v", err)
	}
	if err := s.SetField("ghost", "operand", "1"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetField(ghost) error = %v", err)
	}
}

func TestExternalUpdateReachesEditor(t *testing.T) {
	s := newSession(t, nil)
	n := drop(t, s, nodetype.TypeText)

	s.Store().UpdateNodeField(n.ID, "text", "hello {{name}}")
	ed, _ := s.Editor(n.ID)
	if v, _ := ed.Value("text"); v != "hello {{name}}" {
		t.Errorf("editor value = %v", v)
	}
}

func TestConnect(t *testing.T) {
	s := newSession(t, nil)
	in := drop(t, s, nodetype.TypeInput)
	llm := drop(t, s, nodetype.TypeLLM)

	e, err := s.Connect(store.Connection{
		Source: in.ID, SourceHandle: in.ID + "-value",
		Target: llm.ID, TargetHandle: llm.ID + "-prompt",
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if e.ID != graph.EdgeID(in.ID, in.ID+"-value", llm.ID, llm.ID+"-prompt") {
		t.Errorf("edge id = %s", e.ID)
	}

	tests := []struct {
		name string
		c    store.Connection
	}{
		{"Duplicate", store.Connection{Source: in.ID, SourceHandle: in.ID + "-value", Target: llm.ID, TargetHandle: llm.ID + "-prompt"}},
		{"Reversed", store.Connection{Source: llm.ID, SourceHandle: llm.ID + "-prompt", Target: in.ID, TargetHandle: in.ID + "-value"}},
		{"UnknownHandle", store.Connection{Source: in.ID, SourceHandle: in.ID + "-nope", Target: llm.ID, TargetHandle: llm.ID + "-system"}},
		{"SelfLoop", store.Connection{Source: llm.ID, SourceHandle: llm.ID + "-response", Target: llm.ID, TargetHandle: llm.ID + "-system"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Connect(tt.c); !errors.Is(err, errors.ErrCodeConnectionRejected) {
				t.Errorf("Connect() error = %v, want CONNECTION_REJECTED", err)
			}
		})
	}
	if st := s.Stats(); st.Edges != 1 {
		t.Errorf("edges = %d, want 1", st.Edges)
	}
}

func TestDynamicHandlesFollowEdits(t *testing.T) {
	s := newSession(t, nil)
	n := drop(t, s, nodetype.TypeDecision)

	layout, err := s.Handles(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := layout.Find(n.ID + "-true"); !ok {
		t.Fatalf("binary decision missing true handle: %+v", layout)
	}

	if err := s.SetField(n.ID, "mode", "switch"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetField(n.ID, "cases", "3"); err != nil {
		t.Fatal(err)
	}
	layout, _ = s.Handles(n.ID)
	for _, id := range []string{"-case-0", "-case-2", "-default"} {
		if _, ok := layout.Find(n.ID + id); !ok {
			t.Errorf("switch decision missing %s", id)
		}
	}
	if _, ok := layout.Find(n.ID + "-true"); ok {
		t.Error("switch decision still has the true handle")
	}
}

func TestRemoveUnmounts(t *testing.T) {
	s := newSession(t, nil)
	in := drop(t, s, nodetype.TypeInput)
	out := drop(t, s, nodetype.TypeOutput)
	if _, err := s.Connect(store.Connection{Source: in.ID, SourceHandle: in.ID + "-value", Target: out.ID, TargetHandle: out.ID + "-value"}); err != nil {
		t.Fatal(err)
	}

	if !s.Remove(in.ID) {
		t.Fatal("Remove() = false")
	}
	if st := s.Stats(); st != (Stats{Nodes: 1, Edges: 0, Mounted: 1}) {
		t.Errorf("Stats() = %+v", st)
	}
	if _, err := s.Editor(in.ID); err == nil {
		t.Error("editor still mounted after removal")
	}

	// Ids are never reused, even after removal.
	again := drop(t, s, nodetype.TypeInput)
	if again.ID != "customInput-1" {
		t.Errorf("id after removal = %s, want customInput-1", again.ID)
	}
	if again.Data["inputName"] != "input_0" {
		t.Errorf("inputName after removal = %v, want input_0", again.Data["inputName"])
	}
}

func TestMove(t *testing.T) {
	s := newSession(t, nil)
	n := drop(t, s, nodetype.TypeText)
	if !s.Move(n.ID, graph.Position{X: 7, Y: 9}) {
		t.Fatal("Move() = false")
	}
	got, _ := s.Store().Node(n.ID)
	if got.Position != (graph.Position{X: 7, Y: 9}) {
		t.Errorf("position = %+v", got.Position)
	}
	if s.Move("ghost", graph.Position{}) {
		t.Error("Move(ghost) = true")
	}
}

func TestSubmit(t *testing.T) {
	var gotNodes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := graph.Unmarshal([]byte(r.FormValue(submit.FormField)))
		gotNodes = len(p.Nodes)
		_, _ = io.WriteString(w, `{"num_nodes":2,"num_edges":0,"is_dag":true}`)
	}))
	defer srv.Close()

	s := newSession(t, submit.NewClient(srv.URL, submit.WithLogger(quiet)))
	drop(t, s, nodetype.TypeText)
	drop(t, s, nodetype.TypeText)

	var out submit.Outcome
	surface := s.NewSurface(func(o submit.Outcome) { out = o })
	id := s.Submit(context.Background(), surface)
	s.Wait()

	if out.Title != "Pipeline is a DAG" || out.SubmissionID != id || gotNodes != 2 {
		t.Errorf("outcome = %+v, server saw %d nodes", out, gotNodes)
	}
}

func TestCloseDiscardsInFlight(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, `{"num_nodes":1,"num_edges":0,"is_dag":true}`)
	}))
	defer srv.Close()
	defer once.Do(func() { close(release) })

	s := newSession(t, submit.NewClient(srv.URL, submit.WithLogger(quiet)))
	drop(t, s, nodetype.TypeText)

	delivered := false
	surface := s.NewSurface(func(submit.Outcome) { delivered = true })
	s.Submit(context.Background(), surface)

	s.Close()
	once.Do(func() { close(release) })
	s.Wait()

	if delivered {
		t.Error("outcome delivered after Close")
	}
	if late := s.NewSurface(nil); !late.Closed() {
		t.Error("surface created after Close is open")
	}
}

type fixedSubmitter struct{}

func (fixedSubmitter) Submit(context.Context, graph.Pipeline) (submit.Result, error) {
	return submit.Result{NumNodes: 1, IsDAG: true}, nil
}

func TestSubmitWithoutSurface(t *testing.T) {
	s := newSession(t, fixedSubmitter{})
	drop(t, s, nodetype.TypeText)

	if id := s.Submit(context.Background(), nil); id == "" {
		t.Error("Submit() returned no id")
	}
	s.Wait()
}
