// Package dag provides a directed graph with cycle detection, used by the
// validation service to decide whether a submitted pipeline is acyclic.
//
// # Overview
//
// A submitted pipeline is a list of nodes and handle-to-handle edges. For the
// acyclicity question only node-to-node reachability matters, so this package
// keeps a plain adjacency structure keyed by node id.
//
// # Basic Usage
//
// Create a graph with [New], add nodes with [Graph.AddNode], and edges with
// [Graph.AddEdge]. Node ids must be unique and edges may only connect existing
// nodes:
//
//	g := dag.New()
//	g.AddNode("customInput-0")
//	g.AddNode("llm-0")
//	g.AddEdge("customInput-0", "llm-0")
//	g.IsAcyclic() // true
//
// [FromPipeline] builds a graph from a [graph.Pipeline], silently skipping
// edges whose endpoints are not present. This matches how the validation
// service counts edges: only edges between known nodes count.
//
// # Cycle Detection
//
// [Graph.Validate] runs a depth-first search with white/gray/black coloring in
// O(N+E) time and returns [ErrGraphHasCycle] when a back edge is found. Self
// loops count as cycles.
//
// # Concurrency
//
// Graph is not safe for concurrent use without external synchronization.
package dag
