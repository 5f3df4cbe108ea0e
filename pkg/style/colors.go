// Package style provides the shared visual vocabulary of the generators:
// per-actor color classes so that steps owned by the same role or
// department are visually grouped across every output format.
package style

import "github.com/procflow/procflow/pkg/flow"

// Palette is the fill color cycle assigned to actors. Colors repeat when a
// process involves more actors than the palette holds.
var Palette = []string{
	"#1f77b4", // blue
	"#ff7f0e", // orange
	"#2ca02c", // green
	"#d62728", // red
	"#9467bd", // purple
	"#8c564b", // brown
	"#e377c2", // pink
	"#17becf", // cyan
}

// TerminalColor is the fill used for synthesized start/end markers.
const TerminalColor = "#7f7f7f"

// ActorColors assigns one palette color per distinct actor, in order of
// first appearance in the graph. The assignment is deterministic for a
// given graph, which keeps generated artifacts stable across rebuilds.
func ActorColors(g *flow.Graph) map[string]string {
	colors := map[string]string{}
	next := 0
	for _, n := range g.Nodes() {
		if n.Actor == "" {
			continue
		}
		if _, ok := colors[n.Actor]; ok {
			continue
		}
		colors[n.Actor] = Palette[next%len(Palette)]
		next++
	}
	return colors
}
