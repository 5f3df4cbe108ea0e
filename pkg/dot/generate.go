// Package dot serializes process graphs to the DOT-compatible
// graph-description notation used by the text-mode editor, and parses that
// notation back into a graph.
//
// The notation is a strict subset of Graphviz DOT: one top-level graph
// attribute block, one node statement per node and one edge statement per
// edge. Attributes the compiler does not interpret are preserved verbatim
// on the node, so hand-written extras survive a round trip through the
// other representations.
package dot

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/style"
)

// Interpreted attribute names. Everything else round-trips opaquely.
const (
	attrShape     = "shape"
	attrLabel     = "label"
	attrActor     = "actor"
	attrCondition = "condition"
	attrColor     = "color"
)

// Shapes per node kind, also used by the parser for the reverse mapping.
var kindShapes = map[flow.Kind]string{
	flow.KindStart:   "circle",
	flow.KindEnd:     "doublecircle",
	flow.KindTask:    "box",
	flow.KindGateway: "diamond",
}

// Generate serializes the graph to the graph-description notation.
// Statements follow node/edge insertion order so output is deterministic.
func Generate(g *flow.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph process {\n")

	attrs := g.Attrs()
	if len(attrs) == 0 {
		attrs = map[string]string{"rankdir": "TB"}
	}
	pairs := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, attrs[k]))
	}
	fmt.Fprintf(&buf, "  graph [%s];\n\n", strings.Join(pairs, ", "))

	colors := style.ActorColors(g)
	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, colors), ", "))
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

func nodeAttrs(n *flow.Node, colors map[string]string) []string {
	attrs := []string{
		fmt.Sprintf("%s=%q", attrShape, kindShapes[n.Kind]),
		fmt.Sprintf("%s=%q", attrLabel, n.DisplayLabel()),
	}
	if n.Actor != "" {
		attrs = append(attrs, fmt.Sprintf("%s=%q", attrActor, n.Actor))
	}
	if n.Kind == flow.KindGateway {
		attrs = append(attrs, fmt.Sprintf("%s=%q", attrCondition, n.Condition))
	}

	color := style.TerminalColor
	if c, ok := colors[n.Actor]; ok {
		color = c
	}
	if _, overridden := n.Attrs[attrColor]; !overridden {
		attrs = append(attrs, fmt.Sprintf("%s=%q", attrColor, color))
	}

	// Opaque attributes last, sorted for stable output.
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		switch k {
		case attrShape, attrLabel, attrActor, attrCondition:
			continue // interpreted, already emitted
		}
		attrs = append(attrs, fmt.Sprintf("%s=%q", k, n.Attrs[k]))
	}
	return attrs
}
