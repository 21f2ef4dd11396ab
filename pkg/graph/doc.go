// Package graph provides the canonical node/edge types of a pipeline.
//
// These types are shared by the graph store, the dynamic node engine, the
// submission boundary and the validation service, and they define the wire
// format sent to the external service:
//
//	{
//	  "nodes": [{"id": "llm-0", "type": "llm", "position": {"x": 60, "y": 100},
//	             "data": {"id": "llm-0", "type": "llm"}}],
//	  "edges": [{"id": "reactflow__edge-...", "source": "customInput-0",
//	             "sourceHandle": "customInput-0-value", "target": "llm-0",
//	             "targetHandle": "llm-0-prompt"}]
//	}
//
// # Core Types
//
//   - [Node]: a typed unit with a position and a data payload
//   - [Edge]: a directed connection between a source and a target handle
//   - [Pipeline]: the {nodes, edges} document
//   - [Direction]: whether a handle emits (source) or receives (target)
//
// # Copy Semantics
//
// [Node.Clone] and [Pipeline.Clone] deep-copy data maps. Readers that hand
// values out of the store always clone so callers cannot mutate shared state.
package graph
