// Package nodetype is the declarative catalogue of node types.
//
// A node type is described entirely by data: a [Config] lists its ordered
// editable [Field]s, the connection points ([HandleSpec]) it exposes and the
// styling tokens a renderer needs. One generic editor (package engine) drives
// every type from its Config, so adding a node type never means writing code
// for it.
//
// # Fields
//
// Each field carries one [Input] variant: [TextInput], [TextareaInput],
// [NumberInput], [SelectInput] or [CheckboxInput]. The variant holds only the
// payload that kind needs, for example options only for selects. Defaults are
// either a [Literal] or a [DefaultFunc] computed from the node and the current
// node list; they are resolved lazily and only when no persisted value exists.
//
// # Handles
//
// Handles are geometry as data: direction, side, vertical ratio and an
// optional id suffix. A type's [HandleProvider] is either a fixed
// [StaticHandles] list or a [HandleFunc] recomputed from node state. The
// externally visible id of a handle is derived with [ResolveHandleID] and can
// be mapped back to its node with [OwnerNodeID] without any lookup table.
//
// # Registry
//
// A [Registry] is filled once at startup, from [RegisterBuiltins] and
// optionally from HCL catalogue files ([LoadHCLFile]), then sealed:
//
//	reg := nodetype.NewRegistry()
//	if err := nodetype.RegisterBuiltins(reg); err != nil {
//	    return err
//	}
//	reg.Seal()
//
//	cfg, err := reg.Get("llm") // UNKNOWN_NODE_TYPE if never registered
package nodetype
