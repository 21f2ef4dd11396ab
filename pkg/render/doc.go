// Package render draws pipelines as node-link diagrams.
//
// [ToDOT] turns a pipeline into Graphviz DOT source. Nodes are labelled with
// their node-type title and display name and filled with the type's accent
// colour; edges carry the handle suffixes they connect. [RenderSVG] lays the
// DOT out in-process with [github.com/goccy/go-graphviz].
//
//	dot := render.ToDOT(pipeline, registry, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Nodes whose type is not in the catalogue are still drawn, with a dashed
// outline, so a diagram never hides part of the graph.
package render
