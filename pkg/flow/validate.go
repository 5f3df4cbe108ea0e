package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStartNode is returned by [Graph.Validate] when the graph has no
	// start node. The normalizer always synthesizes one; a graph parsed from
	// hand-edited text may lack it until the repair pass runs.
	ErrNoStartNode = errors.New("graph has no start node")

	// ErrMultipleStartNodes is returned by [Graph.Validate] when more than
	// one node has the start kind.
	ErrMultipleStartNodes = errors.New("graph has multiple start nodes")

	// ErrNoEndNode is returned by [Graph.Validate] when no node has the
	// end kind.
	ErrNoEndNode = errors.New("graph has no end node")

	// ErrDanglingNode is returned by [Graph.Validate] when a non-terminal
	// node has no outgoing edge. Normalization connects such nodes to end.
	ErrDanglingNode = errors.New("non-terminal node has no outgoing edge")

	// ErrMissingCondition is returned by [Graph.Validate] when a gateway
	// node has no condition text.
	ErrMissingCondition = errors.New("gateway has no condition")

	// ErrBranchMisuse is returned by [Graph.Validate] when a yes/no branch
	// leaves a non-gateway node, or a gateway emits a sequential branch.
	ErrBranchMisuse = errors.New("branch kind not allowed for node kind")

	// ErrBranchConflict is returned by [Graph.Validate] when a node emits
	// two edges on the same branch.
	ErrBranchConflict = errors.New("duplicate outgoing branch")
)

// Validate checks the graph invariants that every built graph satisfies:
//
//  1. Every edge connects existing, distinct nodes (enforced by AddEdge,
//     re-checked here against corruption).
//  2. Exactly one start node exists and at least one end node exists.
//  3. Every non-terminal node has at least one outgoing edge.
//  4. Gateways carry a condition and emit at most one yes and one no edge;
//     every other node emits at most one sequential edge and no yes/no.
//
// Graphs produced by the builder always validate. Graphs produced by the
// text parser may not, and go through the repair pass first.
func (g *Graph) Validate() error {
	starts, ends := 0, 0
	for _, n := range g.Nodes() {
		switch n.Kind {
		case KindStart:
			starts++
		case KindEnd:
			ends++
		case KindGateway:
			if n.Condition == "" {
				return fmt.Errorf("node %q: %w", n.ID, ErrMissingCondition)
			}
		}
	}
	if starts == 0 {
		return ErrNoStartNode
	}
	if starts > 1 {
		return ErrMultipleStartNodes
	}
	if ends == 0 {
		return ErrNoEndNode
	}

	for _, e := range g.edges {
		src, okS := g.nodes[e.Source]
		_, okT := g.nodes[e.Target]
		if !okS || !okT {
			return fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, ErrUnknownTargetNode)
		}
		if e.Source == e.Target {
			return fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, ErrSelfLoop)
		}
		gateway := src.Kind == KindGateway
		conditional := e.Branch == BranchYes || e.Branch == BranchNo
		if gateway != conditional {
			return fmt.Errorf("edge %s->%s (%s): %w", e.Source, e.Target, e.Branch, ErrBranchMisuse)
		}
	}

	for _, n := range g.Nodes() {
		if n.Kind == KindEnd {
			continue
		}
		out := g.Outgoing(n.ID)
		if len(out) == 0 {
			return fmt.Errorf("node %q: %w", n.ID, ErrDanglingNode)
		}
		seen := map[Branch]bool{}
		for _, e := range out {
			if seen[e.Branch] {
				return fmt.Errorf("node %q branch %s: %w", n.ID, e.Branch, ErrBranchConflict)
			}
			seen[e.Branch] = true
		}
	}
	return nil
}

// Equal reports whether two graphs are structurally equivalent: same node
// IDs, kinds, labels, actors and conditions, and the same edge set
// (source, target, branch), ignoring order, positions and opaque attributes.
// This is the equivalence used by the round-trip and idempotence guarantees.
func Equal(a, b *Graph) bool {
	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		return false
	}
	for _, na := range a.Nodes() {
		nb, ok := b.Node(na.ID)
		if !ok {
			return false
		}
		if na.Kind != nb.Kind || na.Label != nb.Label ||
			na.Actor != nb.Actor || na.Condition != nb.Condition {
			return false
		}
	}
	seen := make(map[[3]string]int, a.EdgeCount())
	for _, e := range a.edges {
		seen[[3]string{e.Source, e.Target, string(e.Branch)}]++
	}
	for _, e := range b.edges {
		key := [3]string{e.Source, e.Target, string(e.Branch)}
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}
