package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

// Catalogue looks up node-type configurations.
type Catalogue interface {
	Get(key string) (nodetype.Config, error)
}

// Options configures diagram generation.
type Options struct {
	// Detailed adds every persisted field value to node labels.
	Detailed bool
}

// displayKeys are the fields shown under the title when present.
var displayKeys = []string{"inputName", "outputName"}

// ToDOT converts a pipeline to Graphviz DOT source. types may be nil.
func ToDOT(p graph.Pipeline, types Catalogue, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph pipeline {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=9, color=\"#64748B\"];\n")
	buf.WriteString("\n")

	for _, n := range p.Nodes {
		cfg, known := lookup(types, n.Type)
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, cfg, known, opts.Detailed))}
		switch {
		case !known:
			attrs = append(attrs, `style="rounded,dashed"`, "color=grey")
		case cfg.AccentColor != "":
			attrs = append(attrs, fmt.Sprintf("color=%q", cfg.AccentColor), fmt.Sprintf("fillcolor=%q", tint(cfg.AccentColor)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range p.Edges {
		label := edgeLabel(e)
		if label == "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Source, e.Target, label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func lookup(types Catalogue, key string) (nodetype.Config, bool) {
	if types == nil {
		return nodetype.Config{}, false
	}
	cfg, err := types.Get(key)
	return cfg, err == nil
}

func fmtLabel(n graph.Node, cfg nodetype.Config, known, detailed bool) string {
	title := n.Type
	if known && cfg.Title != "" {
		title = cfg.Title
	}
	lines := []string{title}

	name := n.ID
	for _, k := range displayKeys {
		if v, ok := n.Data[k].(string); ok && v != "" {
			name = v
			break
		}
	}
	lines = append(lines, name)

	if detailed {
		for _, k := range slices.Sorted(maps.Keys(n.Data)) {
			if k == graph.DataKeyID || k == graph.DataKeyType {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %v", k, n.Data[k]))
		}
	}
	return strings.Join(lines, "\n")
}

// edgeLabel shows "sourceSuffix → targetSuffix" using the handle suffixes.
func edgeLabel(e graph.Edge) string {
	src := suffixOf(e.SourceHandle, e.Source)
	dst := suffixOf(e.TargetHandle, e.Target)
	switch {
	case src == "" && dst == "":
		return ""
	case dst == "":
		return src
	case src == "":
		return dst
	}
	return src + " → " + dst
}

func suffixOf(handleID, nodeID string) string {
	if s, ok := strings.CutPrefix(handleID, nodeID+"-"); ok {
		return s
	}
	return ""
}

// tint lightens a #RRGGBB colour towards white for node fills.
func tint(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return "white"
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return "white"
	}
	mix := func(c uint64) uint64 { return c + (255-c)*85/100 }
	r, g, b := mix(v>>16&0xff), mix(v>>8&0xff), mix(v&0xff)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// RenderSVG lays out DOT source with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-based svg header with a plain
// viewBox so the diagram scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
