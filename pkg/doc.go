// Package pkg provides the libraries behind pipewright, the core of a visual
// pipeline editor.
//
// # Overview
//
// A pipeline is a graph of typed nodes joined by edges between named
// handles. The libraries split the editor into layers:
//
//  1. [graph] - wire types for nodes, edges and pipeline documents
//  2. [naming] - node ids and gap-filled display names
//  3. [nodetype] - the node-type catalogue, built-in and HCL-defined
//  4. [store] - the graph store with connection rules and change events
//  5. [engine] - per-node editors that reconcile field state and handles
//  6. [canvas] - viewport maths and drop placement
//  7. [session] - one editing session wiring the layers together
//  8. [submit] - the client of the validation service
//  9. [dag] - the DAG check the validation service runs
//
// Supporting packages cover [cache], [config], [errors], [observability],
// [render] and [buildinfo].
//
// # Architecture
//
// The typical flow of an edit:
//
//	drop on canvas
//	     ↓
//	[canvas] places a node, [naming] issues its id
//	     ↓
//	[store] holds it, [engine] mounts an editor and writes defaults
//	     ↓
//	connect gestures are checked by [store] against [engine] handles
//	     ↓
//	[submit] posts a snapshot to the validation service, which answers
//	with node and edge counts and whether the graph is a [dag]
//
// # Quick Start
//
// Drop two nodes, connect them and validate:
//
//	reg := nodetype.NewRegistry()
//	_ = nodetype.RegisterBuiltins(reg)
//	reg.Seal()
//
//	s := session.New(reg, submit.NewClient(""), session.Options{})
//	defer s.Close()
//
//	s.Drop(canvas.Point{X: 100, Y: 100}, nodetype.TypeText)
//	s.Drop(canvas.Point{X: 400, Y: 100}, nodetype.TypeLLM)
//	s.Connect(store.Connection{
//	    Source: "text-0", SourceHandle: "text-0-output",
//	    Target: "llm-0", TargetHandle: "llm-0-prompt",
//	})
//
//	surface := s.NewSurface(func(o submit.Outcome) { fmt.Println(o.Title) })
//	s.Submit(ctx, surface)
//	s.Wait()
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/graph
// [naming]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/naming
// [nodetype]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/nodetype
// [store]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/store
// [engine]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/engine
// [canvas]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/canvas
// [session]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/session
// [submit]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/submit
// [dag]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/dag
// [cache]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/observability
// [render]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/render
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/pipewright/pkg/buildinfo
package pkg
