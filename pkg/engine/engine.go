// Package engine turns declarative node type configurations into live
// editing state.
//
// One generic [Editor] serves every node type. Given a type's
// [nodetype.Config] and a node's persisted data it:
//
//   - derives an editable value per field ([InitialValues]), persisted value
//     first, default otherwise
//   - merges later persisted data with the pure [Reconcile] function, keeping
//     local edits that a stale snapshot would clobber
//   - back-fills values the store is missing, once per key ([Backfill])
//   - writes user edits to the store in the same step as the local update
//   - computes handle geometry, static or dynamic, split into left and right
//
// [Engine] keeps the mounted editors and resolves handle ids for the store's
// connection validation.
package engine

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

// Catalogue looks up node type configurations.
type Catalogue interface {
	Get(key string) (nodetype.Config, error)
}

// Graph is the part of the store the engine reads and writes.
type Graph interface {
	FieldWriter
	Node(id string) (graph.Node, bool)
	Nodes() []graph.Node
}

// Engine mounts editors for nodes and resolves their handles.
type Engine struct {
	types  Catalogue
	graph  Graph
	logger *log.Logger

	mu       sync.RWMutex
	editors  map[string]*Editor
	reported map[string]bool // unknown types already logged
}

// New creates an engine. A nil logger uses log.Default().
func New(types Catalogue, g Graph, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		types:    types,
		graph:    g,
		logger:   logger,
		editors:  make(map[string]*Editor),
		reported: make(map[string]bool),
	}
}

// Mount creates the editor for nodeID, or returns the one already mounted.
//
// A new editor back-fills its defaults into the store immediately. Mount
// fails with UNKNOWN_NODE_TYPE when the node's type is not registered, and
// with INVALID_INPUT when the node does not exist.
func (en *Engine) Mount(nodeID string) (*Editor, error) {
	en.mu.RLock()
	ed, ok := en.editors[nodeID]
	en.mu.RUnlock()
	if ok {
		return ed, nil
	}

	node, ok := en.graph.Node(nodeID)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "node %q not found", nodeID)
	}
	cfg, err := en.types.Get(node.Type)
	if err != nil {
		en.reportUnknown(node.Type, err)
		return nil, err
	}

	ed = newEditor(cfg, node, en.graph.Nodes(), en.graph, en.logger)
	en.mu.Lock()
	if existing, ok := en.editors[nodeID]; ok {
		en.mu.Unlock()
		return existing, nil
	}
	en.editors[nodeID] = ed
	en.mu.Unlock()

	en.logger.Debug("mounted editor", "node", nodeID, "type", node.Type)
	ed.Sync(node.Data)
	return ed, nil
}

// Unmount forgets the editor of nodeID.
func (en *Engine) Unmount(nodeID string) {
	en.mu.Lock()
	delete(en.editors, nodeID)
	en.mu.Unlock()
}

// Editor returns the mounted editor of nodeID.
func (en *Engine) Editor(nodeID string) (*Editor, bool) {
	en.mu.RLock()
	defer en.mu.RUnlock()
	ed, ok := en.editors[nodeID]
	return ed, ok
}

// Mounted returns the number of mounted editors.
func (en *Engine) Mounted() int {
	en.mu.RLock()
	defer en.mu.RUnlock()
	return len(en.editors)
}

// Layout returns the handle layout of node, using the mounted editor's
// values when there is one.
func (en *Engine) Layout(node graph.Node) (Layout, error) {
	cfg, err := en.types.Get(node.Type)
	if err != nil {
		en.reportUnknown(node.Type, err)
		return Layout{}, err
	}
	return layout(cfg, en.handleContext(node)), nil
}

// HandleDirection resolves handleID on node. An empty handleID addresses the
// handle without suffix. Nodes of unknown type have no handles.
func (en *Engine) HandleDirection(node graph.Node, handleID string) (graph.Direction, bool) {
	cfg, err := en.types.Get(node.Type)
	if err != nil {
		en.reportUnknown(node.Type, err)
		return "", false
	}
	if handleID == "" {
		handleID = node.ID
	}
	for _, h := range handlesOf(cfg, en.handleContext(node)) {
		if h.ID(node.ID) == handleID {
			return h.Direction, true
		}
	}
	return "", false
}

func (en *Engine) handleContext(node graph.Node) nodetype.HandleContext {
	ctx := nodetype.HandleContext{NodeID: node.ID, Data: node.Data}
	if ed, ok := en.Editor(node.ID); ok {
		ctx.Values = ed.handleContext().Values
	}
	return ctx
}

func (en *Engine) reportUnknown(nodeType string, err error) {
	en.mu.Lock()
	first := !en.reported[nodeType]
	en.reported[nodeType] = true
	en.mu.Unlock()
	if first {
		en.logger.Error("cannot render node", "type", nodeType, "err", err)
	}
}
