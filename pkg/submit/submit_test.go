package submit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/observability"
	"github.com/matzehuels/pipewright/pkg/store"
)

var quiet = log.New(io.Discard)

func cyclePipeline() graph.Pipeline {
	return graph.Pipeline{
		Nodes: []graph.Node{
			graph.NewNode("text-0", "text", graph.Position{}),
			graph.NewNode("text-1", "text", graph.Position{}),
			graph.NewNode("text-2", "text", graph.Position{}),
		},
		Edges: []graph.Edge{
			{ID: "e0", Source: "text-0", Target: "text-1"},
			{ID: "e1", Source: "text-1", Target: "text-0"},
		},
	}
}

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSubmitRequestFormat(t *testing.T) {
	var got graph.Pipeline
	var reqID, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		reqID = r.Header.Get(RequestIDHeader)
		p, err := graph.Unmarshal([]byte(r.FormValue(FormField)))
		if err != nil {
			t.Errorf("pipeline field: %v", err)
		}
		got = p
		_, _ = io.WriteString(w, `{"num_nodes":3,"num_edges":2,"is_dag":false}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, WithLogger(quiet)).Submit(context.Background(), cyclePipeline())
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if reqID == "" || res.SubmissionID != reqID {
		t.Errorf("request id %q, result id %q", reqID, res.SubmissionID)
	}
	if len(got.Nodes) != 3 || len(got.Edges) != 2 || got.Nodes[0].Data["id"] != "text-0" {
		t.Errorf("server saw %+v", got)
	}
}

func TestSubmitNotADAG(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{"num_nodes":3,"num_edges":2,"is_dag":false}`)
	res, err := NewClient(srv.URL, WithLogger(quiet)).Submit(context.Background(), cyclePipeline())

	out := Interpret(res, err)
	if out.Kind != OutcomeResult || out.Title != "Not a DAG" {
		t.Errorf("outcome = %+v", out)
	}
	if out.NumNodes != 3 || out.NumEdges != 2 || out.IsDAG {
		t.Errorf("counts = %d/%d dag=%v", out.NumNodes, out.NumEdges, out.IsDAG)
	}
	if out.Message != "3 nodes, 2 edges" {
		t.Errorf("message = %q", out.Message)
	}
}

func TestSubmitServerError(t *testing.T) {
	srv, calls := serve(t, http.StatusInternalServerError, `oops`)
	s := store.New(store.WithLogger(quiet))
	for _, n := range cyclePipeline().Nodes {
		_ = s.AddNode(n)
	}
	before := s.Snapshot()

	res, err := NewClient(srv.URL, WithLogger(quiet)).Submit(context.Background(), s.Snapshot())
	if !errors.Is(err, errors.ErrCodeHTTPStatus) {
		t.Fatalf("Submit() error = %v, want HTTP_STATUS", err)
	}
	var se *errors.HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != 500 {
		t.Errorf("HTTPStatusError = %+v", se)
	}

	out := Interpret(res, err)
	if out.Kind != OutcomeFailure || out.Code != errors.ErrCodeHTTPStatus {
		t.Errorf("outcome = %+v", out)
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want exactly 1 (no retry)", calls.Load())
	}
	after := s.Snapshot()
	if len(after.Nodes) != len(before.Nodes) || len(after.Edges) != len(before.Edges) {
		t.Error("store modified by a failed submission")
	}
}

func TestEmptyGraphNoNetwork(t *testing.T) {
	srv, calls := serve(t, http.StatusOK, `{}`)
	_, err := NewClient(srv.URL, WithLogger(quiet)).Submit(context.Background(), graph.Pipeline{})
	if !errors.Is(err, errors.ErrCodeEmptyGraph) {
		t.Errorf("Submit() error = %v, want EMPTY_GRAPH", err)
	}
	if calls.Load() != 0 {
		t.Errorf("requests = %d, want 0", calls.Load())
	}
	if out := Interpret(Result{}, err); out.Kind != OutcomeInvalid {
		t.Errorf("outcome kind = %s", out.Kind)
	}
}

func TestResponseDecoding(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Result
		wantErr bool
	}{
		{name: "DAG", body: `{"num_nodes":2,"num_edges":1,"is_dag":true}`, want: Result{NumNodes: 2, NumEdges: 1, IsDAG: true}},
		{name: "ExtraFields", body: `{"num_nodes":1,"num_edges":0,"is_dag":true,"took_ms":3}`, want: Result{NumNodes: 1, IsDAG: true}},
		{name: "ZeroValuesPresent", body: `{"num_nodes":1,"num_edges":0,"is_dag":false}`, want: Result{NumNodes: 1}},
		{name: "MissingIsDAG", body: `{"num_nodes":1,"num_edges":0}`, wantErr: true},
		{name: "MissingAll", body: `{}`, wantErr: true},
		{name: "WrongType", body: `{"num_nodes":"1","num_edges":0,"is_dag":true}`, wantErr: true},
		{name: "NotJSON", body: `<html>`, wantErr: true},
		{name: "ErrorBody", body: `[{"error":"Invalid JSON format for pipeline data"},400]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, http.StatusOK, tt.body)
			got, err := NewClient(srv.URL, WithLogger(quiet)).Submit(context.Background(), cyclePipeline())
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeMalformedResponse) {
					t.Errorf("Submit() error = %v, want MALFORMED_RESPONSE", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Submit() error: %v", err)
			}
			got.SubmissionID = ""
			if got != tt.want {
				t.Errorf("Submit() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServiceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithLogger(quiet)).Submit(context.Background(), cyclePipeline())
	if !errors.Is(err, errors.ErrCodeServiceUnreachable) {
		t.Errorf("Submit() error = %v, want SERVICE_UNREACHABLE", err)
	}
	if out := Interpret(Result{}, err); out.Title != "Submission failed" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestInterpretDAG(t *testing.T) {
	out := Interpret(Result{NumNodes: 1, NumEdges: 1, IsDAG: true}, nil)
	if out.Title != "Pipeline is a DAG" || out.Message != "1 node, 1 edge" || out.Failed() {
		t.Errorf("outcome = %+v", out)
	}
}

// fakeSnapshot returns a fixed pipeline.
type fakeSnapshot struct{ p graph.Pipeline }

func (f fakeSnapshot) Snapshot() graph.Pipeline { return f.p.Clone() }

// gatedSubmitter blocks until release is closed and records what it saw.
type gatedSubmitter struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []graph.Pipeline
}

func (g *gatedSubmitter) Submit(ctx context.Context, p graph.Pipeline) (Result, error) {
	g.mu.Lock()
	g.seen = append(g.seen, p)
	g.mu.Unlock()
	<-g.release
	return Result{NumNodes: len(p.Nodes), NumEdges: len(p.Edges), IsDAG: true}, nil
}

func TestDispatchSnapshotsAtDispatchTime(t *testing.T) {
	s := store.New(store.WithLogger(quiet))
	_ = s.AddNode(graph.NewNode("text-0", "text", graph.Position{}))

	sub := &gatedSubmitter{release: make(chan struct{})}
	d := NewDispatcher(sub, quiet)

	var got Outcome
	surface := NewSurface(func(o Outcome) { got = o })
	id := d.Dispatch(context.Background(), s, surface)

	// Edits after dispatch must not leak into the pending submission.
	_ = s.AddNode(graph.NewNode("text-1", "text", graph.Position{}))
	s.UpdateNodeField("text-0", "text", "late edit")

	close(sub.release)
	d.Wait()

	if got.NumNodes != 1 || got.SubmissionID != id {
		t.Errorf("outcome = %+v, want 1 node and id %s", got, id)
	}
	if _, ok := sub.seen[0].Nodes[0].Data["text"]; ok {
		t.Error("submission saw an edit made after dispatch")
	}
}

func TestDispatchDiscardsAfterClose(t *testing.T) {
	sub := &gatedSubmitter{release: make(chan struct{})}
	d := NewDispatcher(sub, quiet)

	delivered := false
	surface := NewSurface(func(Outcome) { delivered = true })
	d.Dispatch(context.Background(), fakeSnapshot{cyclePipeline()}, surface)

	surface.Close()
	close(sub.release)
	d.Wait()

	if delivered {
		t.Error("outcome delivered to a closed surface")
	}
}

// discardCounter counts discarded results.
type discardCounter struct {
	observability.NoopSubmitHooks
	discarded atomic.Int32
}

func (d *discardCounter) OnResultDiscarded(context.Context, string) { d.discarded.Add(1) }

func TestDispatchNilSurfaceDiscards(t *testing.T) {
	hooks := &discardCounter{}
	observability.SetSubmitHooks(hooks)
	t.Cleanup(observability.Reset)

	sub := &gatedSubmitter{release: make(chan struct{})}
	d := NewDispatcher(sub, quiet)
	d.Dispatch(context.Background(), fakeSnapshot{cyclePipeline()}, nil)
	close(sub.release)
	d.Wait()

	if hooks.discarded.Load() != 1 {
		t.Errorf("discarded = %d, want 1", hooks.discarded.Load())
	}
}

func TestNilSurface(t *testing.T) {
	var s *Surface
	s.Close()
	if !s.Closed() {
		t.Error("nil surface reports open")
	}
	if s.Deliver(Outcome{}) {
		t.Error("nil surface accepted an outcome")
	}
}

func TestConcurrentDispatchesIndependent(t *testing.T) {
	sub := &gatedSubmitter{release: make(chan struct{})}
	d := NewDispatcher(sub, quiet)

	var mu sync.Mutex
	var outs []Outcome
	surface := NewSurface(func(o Outcome) {
		mu.Lock()
		outs = append(outs, o)
		mu.Unlock()
	})

	a := d.Dispatch(context.Background(), fakeSnapshot{cyclePipeline()}, surface)
	b := d.Dispatch(context.Background(), fakeSnapshot{cyclePipeline()}, surface)
	if a == b {
		t.Error("dispatches share a submission id")
	}

	close(sub.release)
	d.Wait()
	if len(outs) != 2 {
		t.Errorf("outcomes = %d, want 2", len(outs))
	}
}

func TestDispatchEmptyGraph(t *testing.T) {
	srv, calls := serve(t, http.StatusOK, `{}`)
	d := NewDispatcher(NewClient(srv.URL, WithLogger(quiet), WithTimeout(time.Second)), quiet)

	var got Outcome
	d.Dispatch(context.Background(), fakeSnapshot{}, NewSurface(func(o Outcome) { got = o }))
	d.Wait()

	if got.Kind != OutcomeInvalid || got.Code != errors.ErrCodeEmptyGraph {
		t.Errorf("outcome = %+v", got)
	}
	if calls.Load() != 0 {
		t.Errorf("requests = %d, want 0", calls.Load())
	}
}
