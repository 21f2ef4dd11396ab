package engine

import (
	"maps"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

// FieldWriter is the store operation an editor writes through.
type FieldWriter interface {
	UpdateNodeField(id, key string, value any)
}

// Editor is the live editing state of one node.
//
// The store is written without holding the editor lock, so store listeners
// may call back into [Editor.Sync].
type Editor struct {
	nodeID string
	cfg    nodetype.Config
	fields []nodetype.Field
	writer FieldWriter
	logger *log.Logger

	mu         sync.Mutex
	state      State
	persisted  graph.Data
	backfilled map[string]bool
}

func newEditor(cfg nodetype.Config, node graph.Node, nodes []graph.Node, w FieldWriter, logger *log.Logger) *Editor {
	return &Editor{
		nodeID:     node.ID,
		cfg:        cfg,
		fields:     cfg.KeyedFields(),
		writer:     w,
		logger:     logger,
		state:      NewState(cfg, node.ID, node.Data, nodes),
		persisted:  maps.Clone(node.Data),
		backfilled: make(map[string]bool),
	}
}

// NodeID returns the id of the edited node.
func (e *Editor) NodeID() string { return e.nodeID }

// Config returns the node type configuration.
func (e *Editor) Config() nodetype.Config { return e.cfg }

// Values returns a copy of the editable values.
func (e *Editor) Values() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.state.Values)
}

// Value returns the editable value of key.
func (e *Editor) Value(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.state.Values[key]
	return v, ok
}

// Sync takes new persisted data for the node: it reconciles the editable
// state and then pushes, once per key, every editable value the store is
// still missing. It returns the keys whose editable value changed.
func (e *Editor) Sync(data graph.Data) []string {
	e.mu.Lock()
	next := Reconcile(e.fields, e.state, data)
	changed := Changed(e.fields, e.state, next)
	e.state = next
	e.persisted = maps.Clone(data)

	var push []string
	for _, key := range Backfill(e.fields, e.state.Values, data) {
		if !e.backfilled[key] {
			e.backfilled[key] = true
			push = append(push, key)
		}
	}
	values := make(map[string]any, len(push))
	for _, key := range push {
		values[key] = e.state.Values[key]
	}
	e.mu.Unlock()

	for _, key := range push {
		e.logger.Debug("backfill field", "node", e.nodeID, "key", key, "value", values[key])
		e.writer.UpdateNodeField(e.nodeID, key, values[key])
	}
	if len(changed) > 0 {
		e.logger.Debug("reconciled fields", "node", e.nodeID, "keys", changed)
	}
	return changed
}

// SetField applies a user edit: the editable value changes and the same value
// is written to the store before SetField returns.
func (e *Editor) SetField(key string, value any) error {
	if _, ok := e.cfg.Field(key); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "node type %q has no field %q", e.cfg.Key, key)
	}

	e.mu.Lock()
	values := maps.Clone(e.state.Values)
	if values == nil {
		values = make(map[string]any)
	}
	values[key] = value
	e.state.Values = values
	e.mu.Unlock()

	e.writer.UpdateNodeField(e.nodeID, key, value)
	return nil
}

// SetFieldText coerces raw through the field's input variant and applies it
// with SetField.
func (e *Editor) SetFieldText(key, raw string) error {
	f, ok := e.cfg.Field(key)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "node type %q has no field %q", e.cfg.Key, key)
	}
	v, err := f.Input.Coerce(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "field %q", key)
	}
	return e.SetField(key, v)
}

// Handles returns the current handle layout.
func (e *Editor) Handles() Layout {
	return layout(e.cfg, e.handleContext())
}

func (e *Editor) handleContext() nodetype.HandleContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return nodetype.HandleContext{
		NodeID: e.nodeID,
		Data:   maps.Clone(e.persisted),
		Values: maps.Clone(e.state.Values),
	}
}
