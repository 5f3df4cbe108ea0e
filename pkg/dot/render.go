package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/style"
)

// PreviewDOT converts a process graph to display-oriented DOT. Unlike
// [Generate] it is not round-trippable: interpreted attributes are folded
// into Graphviz styling (filled shapes, actor colors, branch edge labels)
// so the output renders well as-is.
func PreviewDOT(g *flow.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph process {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	colors := style.ActorColors(g)
	for _, n := range g.Nodes() {
		fill := style.TerminalColor
		if c, ok := colors[n.Actor]; ok {
			fill = c
		}
		label := n.DisplayLabel()
		if n.Actor != "" {
			label = fmt.Sprintf("%s\n(%s)", label, n.Actor)
		}
		fmt.Fprintf(&buf, "  %q [shape=%s, label=%q, fillcolor=%q];\n",
			n.ID, kindShapes[n.Kind], label, fill)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if label := e.DisplayLabel(); label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Source, e.Target, label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a process graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, g *flow.Graph) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(PreviewDOT(g)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element so the document occupies the
// full viewBox. Graphviz emits point-based width/height which browsers
// scale inconsistently.
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

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
