// Package layout assigns 2-D coordinates to process graphs using a simple
// layered placement: a start-rooted traversal assigns each node a level,
// levels become horizontal bands, and nodes inside a band are spread evenly
// across the canvas width.
//
// The engine makes no attempt at crossing minimization; the goal is a
// stable, readable default that the visual editor can refine by hand.
package layout

import "github.com/procflow/procflow/pkg/flow"

// Default canvas geometry, chosen to match the editor's initial viewport.
const (
	DefaultCanvasWidth    = 800.0
	DefaultVerticalGap    = 120.0
	DefaultTopMargin      = 40.0
	DefaultFallbackIndent = 0.5 // unreachable nodes sit at this canvas fraction
)

// Options configures the layered placement.
type Options struct {
	CanvasWidth float64 // nominal width the bands are centered in
	VerticalGap float64 // distance between consecutive bands
	TopMargin   float64 // y of the first band
}

func (o *Options) setDefaults() {
	if o.CanvasWidth <= 0 {
		o.CanvasWidth = DefaultCanvasWidth
	}
	if o.VerticalGap <= 0 {
		o.VerticalGap = DefaultVerticalGap
	}
	if o.TopMargin <= 0 {
		o.TopMargin = DefaultTopMargin
	}
}

// Apply annotates every node of g with a position and returns g.
//
// Levels come from a breadth-first traversal rooted at the start node: each
// node is one level below the predecessor that reached it first, and is
// visited at most once. Revisits through loop back-edges or diamond
// convergence keep their first level, so loops render with upward edges
// instead of re-leveling the cycle body.
//
// Nodes the traversal never reaches are flagged unreachable and stacked in
// extra bands below the deepest level, so layout always terminates with
// every node positioned.
//
// Apply is deterministic: the same graph (same insertion order of nodes and
// edges) always produces identical coordinates.
func Apply(g *flow.Graph, opts Options) *flow.Graph {
	opts.setDefaults()

	levels := assignLevels(g)

	maxLevel := 0
	byLevel := map[int][]string{}
	for _, n := range g.Nodes() {
		level, ok := levels[n.ID]
		if !ok {
			continue
		}
		byLevel[level] = append(byLevel[level], n.ID)
		if level > maxLevel {
			maxLevel = level
		}
	}

	for level, ids := range byLevel {
		y := opts.TopMargin + float64(level)*opts.VerticalGap
		for i, id := range ids {
			n, _ := g.Node(id)
			n.X = opts.CanvasWidth * float64(i+1) / float64(len(ids)+1)
			n.Y = y
			n.Level = level
			n.Placed = true
			n.Unreachable = false
		}
	}

	// Fallback: stack unreachable nodes below everything, one per band.
	next := maxLevel + 1
	for _, n := range g.Nodes() {
		if _, ok := levels[n.ID]; ok {
			continue
		}
		n.X = opts.CanvasWidth * DefaultFallbackIndent
		n.Y = opts.TopMargin + float64(next)*opts.VerticalGap
		n.Level = next
		n.Placed = true
		n.Unreachable = true
		next++
	}

	return g
}

// assignLevels runs the start-rooted breadth-first traversal. The first
// level assignment wins; nodes never reached are absent from the map.
func assignLevels(g *flow.Graph) map[string]int {
	levels := map[string]int{}
	start, ok := g.Start()
	if !ok {
		return levels
	}

	levels[start.ID] = 0
	queue := []string{start.ID}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, e := range g.Outgoing(curr) {
			if _, seen := levels[e.Target]; seen {
				continue
			}
			levels[e.Target] = levels[curr] + 1
			queue = append(queue, e.Target)
		}
	}
	return levels
}
