// Package session hosts one editing session over a pipeline canvas.
//
// A [Session] owns the pieces a canvas needs and wires them together:
//
//   - a [naming.Generator] issuing node ids
//   - a [store.Store] holding nodes and edges
//   - an [engine.Engine] with one editor per node, used as the store's
//     handle resolver
//   - a [canvas.Placer] turning drops into nodes
//   - a [submit.Dispatcher] sending snapshots to the validation service
//
// Store events drive the editors: a node update is merged into the node's
// editor, a removal unmounts it. Dropping a node mounts its editor at once
// so defaults reach the store before anything reads it.
//
// Surfaces created through [Session.NewSurface] are closed by
// [Session.Close]; results of submissions still in flight are then dropped.
package session

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/canvas"
	"github.com/matzehuels/pipewright/pkg/engine"
	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/naming"
	"github.com/matzehuels/pipewright/pkg/nodetype"
	"github.com/matzehuels/pipewright/pkg/store"
	"github.com/matzehuels/pipewright/pkg/submit"
)

// Catalogue is the node-type registry as seen by a session.
type Catalogue interface {
	Get(key string) (nodetype.Config, error)
	Has(key string) bool
}

// Options configures a Session.
type Options struct {
	// Logger defaults to log.Default().
	Logger *log.Logger
	// SnapGrid rounds dropped positions; zero disables snapping.
	SnapGrid float64
}

// Stats summarises the canvas.
type Stats struct {
	Nodes   int
	Edges   int
	Mounted int
}

// Session is one editing session.
type Session struct {
	types      Catalogue
	ids        *naming.Generator
	store      *store.Store
	engine     *engine.Engine
	placer     *canvas.Placer
	dispatcher *submit.Dispatcher
	logger     *log.Logger

	mu          sync.Mutex
	viewport    canvas.Viewport
	surfaces    []*submit.Surface
	unsubscribe func()
	closed      bool
}

// New creates a session over types submitting through client.
func New(types Catalogue, client submit.Submitter, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	st := store.New(store.WithLogger(logger))
	en := engine.New(types, st, logger)
	st.SetResolver(en)
	ids := naming.NewGenerator()

	s := &Session{
		types:      types,
		ids:        ids,
		store:      st,
		engine:     en,
		placer:     canvas.NewPlacer(ids, st, canvas.WithSnapGrid(opts.SnapGrid), canvas.WithLogger(logger)),
		dispatcher: submit.NewDispatcher(client, logger),
		logger:     logger,
		viewport:   canvas.Viewport{Zoom: 1},
	}
	s.unsubscribe = st.Subscribe(s.route)
	return s
}

func (s *Session) route(ev store.Event) {
	switch ev.Kind {
	case store.NodeUpdated:
		if ed, ok := s.engine.Editor(ev.NodeID); ok {
			ed.Sync(ev.Node.Data)
		}
	case store.NodeRemoved:
		s.engine.Unmount(ev.NodeID)
	}
}

// Store returns the session's graph store.
func (s *Session) Store() *store.Store { return s.store }

// Engine returns the session's node engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Viewport returns the current pan and zoom.
func (s *Session) Viewport() canvas.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport replaces the pan and zoom.
func (s *Session) SetViewport(vp canvas.Viewport) error {
	if err := canvas.ValidateViewport(vp); err != nil {
		return err
	}
	s.mu.Lock()
	s.viewport = vp
	s.mu.Unlock()
	return nil
}

// Drop places a node of nodeType at the screen point at and mounts its
// editor. An empty nodeType is ignored with ok false. Unregistered types
// fail with UNKNOWN_NODE_TYPE before anything is added.
func (s *Session) Drop(at canvas.Point, nodeType string) (node graph.Node, ok bool, err error) {
	if nodeType != "" && !s.types.Has(nodeType) {
		_, err := s.types.Get(nodeType)
		return graph.Node{}, false, err
	}
	node, ok, err = s.placer.Drop(at, s.Viewport(), nodeType)
	if err != nil || !ok {
		return node, ok, err
	}
	if _, err := s.engine.Mount(node.ID); err != nil {
		return graph.Node{}, false, err
	}
	node, _ = s.store.Node(node.ID)
	return node, true, nil
}

// DropPayload decodes a drag payload and drops the node type it names.
func (s *Session) DropPayload(at canvas.Point, text string) (graph.Node, bool, error) {
	nodeType, ok := canvas.DecodeDropPayload(text)
	if !ok {
		s.logger.Debug("drop ignored: unreadable payload")
		return graph.Node{}, false, nil
	}
	return s.Drop(at, nodeType)
}

// Editor returns the mounted editor of nodeID.
func (s *Session) Editor(nodeID string) (*engine.Editor, error) {
	ed, ok := s.engine.Editor(nodeID)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "node %q is not on the canvas", nodeID)
	}
	return ed, nil
}

// SetField sets a field of nodeID from its text form.
func (s *Session) SetField(nodeID, key, raw string) error {
	ed, err := s.Editor(nodeID)
	if err != nil {
		return err
	}
	return ed.SetFieldText(key, raw)
}

// Connect validates and applies a connection. Rejections are returned as
// CONNECTION_REJECTED and leave the graph unchanged.
func (s *Session) Connect(c store.Connection) (graph.Edge, error) {
	if err := s.store.ValidateConnection(c); err != nil {
		s.logger.Warn("connection rejected", "source", c.Source, "target", c.Target, "err", err)
		return graph.Edge{}, err
	}
	e, ok := s.store.ApplyConnection(c)
	if !ok {
		return graph.Edge{}, errors.New(errors.ErrCodeConnectionRejected, "connection %s -> %s rejected", c.Source, c.Target)
	}
	return e, nil
}

// Disconnect removes an edge.
func (s *Session) Disconnect(edgeID string) bool {
	return s.store.RemoveEdge(edgeID)
}

// Remove deletes a node, its edges and its editor.
func (s *Session) Remove(nodeID string) bool {
	return s.store.RemoveNode(nodeID)
}

// Move sets a node's position in graph space.
func (s *Session) Move(nodeID string, pos graph.Position) bool {
	return s.store.ApplyPositionChanges([]store.PositionChange{{ID: nodeID, Position: pos}}) > 0
}

// Handles returns the handle layout of nodeID.
func (s *Session) Handles(nodeID string) (engine.Layout, error) {
	if ed, ok := s.engine.Editor(nodeID); ok {
		return ed.Handles(), nil
	}
	node, ok := s.store.Node(nodeID)
	if !ok {
		return engine.Layout{}, errors.New(errors.ErrCodeInvalidInput, "node %q not found", nodeID)
	}
	return s.engine.Layout(node)
}

// NewSurface creates a result surface that Close will tear down.
func (s *Session) NewSurface(fn func(submit.Outcome)) *submit.Surface {
	surface := submit.NewSurface(fn)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		surface.Close()
		return surface
	}
	s.surfaces = append(s.surfaces, surface)
	return surface
}

// Submit sends the current graph in the background and returns the
// submission id. The outcome is delivered to surface.
func (s *Session) Submit(ctx context.Context, surface *submit.Surface) string {
	return s.dispatcher.Dispatch(ctx, s.store, surface)
}

// Wait blocks until every submission has finished.
func (s *Session) Wait() { s.dispatcher.Wait() }

// Snapshot returns the current pipeline.
func (s *Session) Snapshot() graph.Pipeline { return s.store.Snapshot() }

// Stats returns node, edge and editor counts.
func (s *Session) Stats() Stats {
	n, e := s.store.Counts()
	return Stats{Nodes: n, Edges: e, Mounted: s.engine.Mounted()}
}

// Close closes every surface and stops routing store events. Submissions in
// flight finish but their outcomes are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	surfaces := s.surfaces
	s.surfaces = nil
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	for _, surface := range surfaces {
		surface.Close()
	}
	unsubscribe()
}
