// Package canvas maps user gestures on the canvas to graph operations.
//
// A drop carries a small JSON payload naming the node type (see
// [DecodeDropPayload]). [Placer.Drop] converts the screen point into graph
// space with the inverse of the current [Viewport] transform, asks the id
// generator for a fresh id and appends a node whose data is only {id, type};
// type-specific defaults are filled later by the node editor.
package canvas

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

// DropMIME is the data-transfer type the drag source uses for the payload.
const DropMIME = "application/reactflow"

// Point is a position in screen space.
type Point struct {
	X float64
	Y float64
}

// Viewport is the pan/zoom transform from graph space to screen space:
// screen = graph*Zoom + (X, Y).
type Viewport struct {
	X    float64
	Y    float64
	Zoom float64
}

// ScreenToGraph applies the inverse transform to p. A non-positive zoom is
// treated as 1.
func (v Viewport) ScreenToGraph(p Point) graph.Position {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return graph.Position{X: (p.X - v.X) / zoom, Y: (p.Y - v.Y) / zoom}
}

// GraphToScreen applies the forward transform to pos.
func (v Viewport) GraphToScreen(pos graph.Position) Point {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Point{X: pos.X*zoom + v.X, Y: pos.Y*zoom + v.Y}
}

// DropPayload is the content carried across the drag gesture.
type DropPayload struct {
	NodeType string `json:"nodeType"`
}

// EncodeDropPayload returns the payload text for nodeType.
func EncodeDropPayload(nodeType string) string {
	data, _ := json.Marshal(DropPayload{NodeType: nodeType})
	return string(data)
}

// DecodeDropPayload extracts the node type from payload text.
// ok is false for an empty or malformed payload or an empty node type.
func DecodeDropPayload(text string) (nodeType string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	var p DropPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return "", false
	}
	if p.NodeType == "" {
		return "", false
	}
	return p.NodeType, true
}

// IDSource issues node ids.
type IDSource interface {
	Next(nodeType string, existing []graph.Node) (string, error)
}

// Graph is the part of the store the placer needs.
type Graph interface {
	Nodes() []graph.Node
	AddNode(n graph.Node) error
}

// Placer turns drops into new nodes.
type Placer struct {
	ids    IDSource
	graph  Graph
	grid   float64
	logger *log.Logger
}

// Option configures a Placer.
type Option func(*Placer)

// WithSnapGrid rounds dropped positions to multiples of size. Zero disables
// snapping.
func WithSnapGrid(size float64) Option {
	return func(p *Placer) {
		if size > 0 {
			p.grid = size
		}
	}
}

// WithLogger sets the placer's logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Placer) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlacer creates a placer writing into g with ids from ids.
func NewPlacer(ids IDSource, g Graph, opts ...Option) *Placer {
	p := &Placer{ids: ids, graph: g, logger: log.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Drop creates a node of nodeType at screen point at under viewport vp.
// An empty nodeType aborts silently with ok false. Id collisions surface as
// DUPLICATE_ID errors.
func (p *Placer) Drop(at Point, vp Viewport, nodeType string) (node graph.Node, ok bool, err error) {
	if nodeType == "" {
		p.logger.Debug("drop ignored: no node type")
		return graph.Node{}, false, nil
	}

	pos := p.snap(vp.ScreenToGraph(at))
	id, err := p.ids.Next(nodeType, p.graph.Nodes())
	if err != nil {
		return graph.Node{}, false, err
	}

	node = graph.NewNode(id, nodeType, pos)
	if err := p.graph.AddNode(node); err != nil {
		return graph.Node{}, false, err
	}
	p.logger.Debug("node dropped", "id", id, "x", pos.X, "y", pos.Y)
	return node, true, nil
}

// DropPayload decodes text and drops the node it names. A payload without a
// node type aborts silently with ok false.
func (p *Placer) DropPayload(at Point, vp Viewport, text string) (graph.Node, bool, error) {
	nodeType, ok := DecodeDropPayload(text)
	if !ok {
		p.logger.Debug("drop ignored: unreadable payload")
		return graph.Node{}, false, nil
	}
	return p.Drop(at, vp, nodeType)
}

func (p *Placer) snap(pos graph.Position) graph.Position {
	if p.grid <= 0 {
		return pos
	}
	return graph.Position{
		X: math.Round(pos.X/p.grid) * p.grid,
		Y: math.Round(pos.Y/p.grid) * p.grid,
	}
}

// ValidateViewport rejects transforms that cannot be inverted. A zero zoom
// is rejected here even though ScreenToGraph reads it as 1.
func ValidateViewport(v Viewport) error {
	if v.Zoom <= 0 || math.IsNaN(v.Zoom) || math.IsInf(v.Zoom, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid zoom %v", v.Zoom)
	}
	return nil
}
