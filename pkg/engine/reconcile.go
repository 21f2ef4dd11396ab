package engine

import (
	"maps"

	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

// State is the editable view of one node.
//
// Values holds what the editor shows. Seen records, per key, the persisted
// value most recently observed; it is what lets [Reconcile] tell a real
// external change from a replay of data the editor has already moved past.
type State struct {
	Values map[string]any
	Seen   map[string]any
}

// InitialValues returns an editable value for every keyed field: the
// persisted value when present, else the resolved default. Fields without a
// persisted value or a default are absent.
func InitialValues(cfg nodetype.Config, nodeID string, data graph.Data, nodes []graph.Node) map[string]any {
	values := make(map[string]any, len(cfg.Fields))
	dctx := nodetype.DefaultContext{NodeID: nodeID, Data: data, Nodes: nodes}
	for _, f := range cfg.KeyedFields() {
		if v, ok := data[f.Key]; ok {
			values[f.Key] = v
			continue
		}
		if f.Default != nil {
			values[f.Key] = f.Default.Resolve(dctx)
		}
	}
	return values
}

// NewState builds the state of a freshly mounted editor.
func NewState(cfg nodetype.Config, nodeID string, data graph.Data, nodes []graph.Node) State {
	seen := make(map[string]any)
	for _, f := range cfg.KeyedFields() {
		if v, ok := data[f.Key]; ok {
			seen[f.Key] = v
		}
	}
	return State{Values: InitialValues(cfg, nodeID, data, nodes), Seen: seen}
}

// Reconcile merges incoming persisted data into current and returns the next
// state; current is not modified.
//
// For each keyed field the incoming value is taken only when it differs from
// the editable value and from the persisted value last seen for that key. A
// replay of old persisted data therefore never overwrites a newer local edit,
// and keys absent from incoming keep their editable value.
func Reconcile(fields []nodetype.Field, current State, incoming graph.Data) State {
	next := State{Values: maps.Clone(current.Values), Seen: maps.Clone(current.Seen)}
	if next.Values == nil {
		next.Values = make(map[string]any)
	}
	if next.Seen == nil {
		next.Seen = make(map[string]any)
	}

	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		in, ok := incoming[f.Key]
		if !ok {
			continue
		}
		seen, hadSeen := current.Seen[f.Key]
		next.Seen[f.Key] = in
		if hadSeen && graph.SameValue(in, seen) {
			continue
		}
		if cur, has := current.Values[f.Key]; has && graph.SameValue(in, cur) {
			continue
		}
		next.Values[f.Key] = in
	}
	return next
}

// Changed returns the keys whose editable value differs between a and b.
func Changed(fields []nodetype.Field, a, b State) []string {
	var keys []string
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		va, oka := a.Values[f.Key]
		vb, okb := b.Values[f.Key]
		if oka != okb || !graph.SameValue(va, vb) {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Backfill returns the keyed fields, in declaration order, that have an
// editable value but no persisted value.
func Backfill(fields []nodetype.Field, values map[string]any, persisted graph.Data) []string {
	var keys []string
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		if _, has := values[f.Key]; !has {
			continue
		}
		if _, stored := persisted[f.Key]; !stored {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
