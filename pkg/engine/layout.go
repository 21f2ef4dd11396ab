package engine

import (
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

// Handle is a handle placed on a concrete node.
type Handle struct {
	nodetype.HandleSpec
	ID string
}

// Layout groups a node's handles by side, each in declaration order.
type Layout struct {
	Left  []Handle
	Right []Handle
}

// All returns left handles followed by right handles.
func (l Layout) All() []Handle {
	out := make([]Handle, 0, len(l.Left)+len(l.Right))
	out = append(out, l.Left...)
	return append(out, l.Right...)
}

// Find returns the handle with the given id.
func (l Layout) Find(id string) (Handle, bool) {
	for _, h := range l.All() {
		if h.ID == id {
			return h, true
		}
	}
	return Handle{}, false
}

func layout(cfg nodetype.Config, ctx nodetype.HandleContext) Layout {
	var out Layout
	for _, spec := range handlesOf(cfg, ctx) {
		h := Handle{HandleSpec: spec, ID: spec.ID(ctx.NodeID)}
		if spec.Side == nodetype.SideLeft {
			out.Left = append(out.Left, h)
		} else {
			out.Right = append(out.Right, h)
		}
	}
	return out
}

func handlesOf(cfg nodetype.Config, ctx nodetype.HandleContext) []nodetype.HandleSpec {
	if cfg.Handles == nil {
		return nil
	}
	return cfg.Handles.Handles(ctx)
}
