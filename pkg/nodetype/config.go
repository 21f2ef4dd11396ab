package nodetype

import (
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/naming"
)

// Config is the immutable description of a node type.
type Config struct {
	Key         string // type key, set by Registry.Register
	Title       string
	Badge       string
	Description string
	AccentColor string

	Fields  []Field
	Handles HandleProvider
}

// Field describes one editable parameter of a node type.
// A field with an empty Key is decorative and never holds a value.
type Field struct {
	Key        string
	Label      string
	Input      Input
	Default    Default // nil means no initial value
	HelperText string
}

// KeyedFields returns the fields that carry a key, in declaration order.
func (c Config) KeyedFields() []Field {
	out := make([]Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Key != "" {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the keyed field named key.
func (c Config) Field(key string) (Field, bool) {
	if key == "" {
		return Field{}, false
	}
	for _, f := range c.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultContext is what a default value may depend on.
type DefaultContext struct {
	NodeID string
	Data   graph.Data
	Nodes  []graph.Node // current store contents
}

// Default produces the initial value of a field that has no persisted value.
type Default interface {
	Resolve(ctx DefaultContext) any
}

type literal struct{ v any }

func (l literal) Resolve(DefaultContext) any { return l.v }

// Literal returns a default that always yields v.
func Literal(v any) Default { return literal{v: v} }

// DefaultFunc is a computed default. It must be pure.
type DefaultFunc func(ctx DefaultContext) any

// Resolve calls f.
func (f DefaultFunc) Resolve(ctx DefaultContext) any { return f(ctx) }

// IndexedName returns a default that picks the smallest free "{prefix}{k}"
// among the values held by the current nodes.
func IndexedName(prefix string) Default {
	return DefaultFunc(func(ctx DefaultContext) any {
		return naming.NextIndexedName(prefix, ctx.Nodes)
	})
}
