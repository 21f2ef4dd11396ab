package nodetype

import (
	"slices"
	"strings"

	"github.com/matzehuels/pipewright/pkg/graph"
)

// Side is the edge of the node a handle is drawn on.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// HandleSpec is the geometry of one connection point.
type HandleSpec struct {
	Direction graph.Direction
	Side      Side
	IDSuffix  string  // optional; empty means the handle id is the node id
	Ratio     float64 // vertical placement in [0,1]; 0 means centred
	Label     string
}

// ID returns the externally visible id of the handle on node nodeID.
func (h HandleSpec) ID(nodeID string) string {
	return ResolveHandleID(nodeID, h.IDSuffix)
}

// Top returns the vertical placement ratio, defaulting to the centre.
func (h HandleSpec) Top() float64 {
	if h.Ratio <= 0 || h.Ratio > 1 {
		return 0.5
	}
	return h.Ratio
}

// ResolveHandleID derives a handle id: "{nodeID}-{suffix}", or nodeID itself
// when suffix is empty.
func ResolveHandleID(nodeID, suffix string) string {
	if suffix == "" {
		return nodeID
	}
	return nodeID + "-" + suffix
}

// OwnerNodeID recovers the node id from a handle id produced by
// [ResolveHandleID] with the same suffix.
func OwnerNodeID(handleID, suffix string) (string, bool) {
	if suffix == "" {
		return handleID, handleID != ""
	}
	nodeID, ok := strings.CutSuffix(handleID, "-"+suffix)
	if !ok || nodeID == "" {
		return "", false
	}
	return nodeID, true
}

// HandleContext is the node state handle geometry may depend on.
type HandleContext struct {
	NodeID string
	Data   graph.Data     // persisted values
	Values map[string]any // editable values
}

// Value returns the editable value for key, falling back to the persisted one.
func (c HandleContext) Value(key string) (any, bool) {
	if v, ok := c.Values[key]; ok {
		return v, true
	}
	v, ok := c.Data[key]
	return v, ok
}

// HandleProvider yields the handles of a node.
type HandleProvider interface {
	Handles(ctx HandleContext) []HandleSpec
}

// StaticHandles is a fixed handle list shared by every node of a type.
type StaticHandles []HandleSpec

// Handles returns a copy of the list.
func (s StaticHandles) Handles(HandleContext) []HandleSpec { return slices.Clone(s) }

// HandleFunc computes handles from node state. It must be pure.
type HandleFunc func(ctx HandleContext) []HandleSpec

// Handles calls f.
func (f HandleFunc) Handles(ctx HandleContext) []HandleSpec { return f(ctx) }
