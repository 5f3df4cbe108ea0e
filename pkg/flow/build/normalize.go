package build

import (
	"fmt"

	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/flow"
)

// Reserved identifiers for synthesized terminal nodes. When a table row
// claims one of these IDs the synthesized node gets a numbered suffix.
const (
	StartID = "start"
	EndID   = "end"
)

// Normalize repairs a graph in place until it satisfies the process
// invariants. Repairs that drop or reinterpret user input are reported as
// warnings; connecting loose ends to a synthesized end node is silent,
// since every graph receives that treatment:
//
//   - Edges whose branch does not fit their source node's kind are
//     relabeled: a yes/no branch on a plain step becomes sequential flow,
//     a sequential branch on a gateway takes a free gateway branch.
//   - A single start node is synthesized and connected to the logical
//     entry: the unique node without incoming edges, or the first node in
//     insertion order when zero or several candidates exist (reported,
//     since the inference is ambiguous).
//   - Extra start-kind nodes (possible in hand-edited text) are demoted
//     to tasks.
//   - Gateways without a condition take their label as condition.
//   - Every non-terminal node without an outgoing edge, and every gateway
//     missing a yes or no branch, is connected to a single synthesized end
//     node on the missing branch.
//   - A graph with no nodes at all becomes the trivial start-to-end
//     process, with a warning.
//
// Normalize is idempotent: a second run performs no repairs.
func Normalize(g *flow.Graph) []Warning {
	var warnings []Warning

	warnings = append(warnings, fixBranches(g)...)
	warnings = append(warnings, dropConflicts(g)...)
	warnings = append(warnings, ensureStart(g)...)
	warnings = append(warnings, ensureConditions(g)...)
	warnings = append(warnings, ensureTerminals(g)...)
	return warnings
}

// fixBranches relabels edges whose branch does not match their source
// node's kind, which hand-edited text and visual edits can both produce.
// A relabel may create a duplicate branch; dropConflicts runs next and
// removes it.
func fixBranches(g *flow.Graph) []Warning {
	var warnings []Warning
	for _, n := range g.Nodes() {
		for _, e := range g.Outgoing(n.ID) {
			var relabel flow.Branch
			switch {
			case n.Kind != flow.KindGateway && e.Branch != flow.BranchSequential:
				relabel = flow.BranchSequential
			case n.Kind == flow.KindGateway && e.Branch == flow.BranchSequential:
				relabel = flow.BranchYes
				for _, other := range g.Outgoing(n.ID) {
					if other.Branch == flow.BranchYes {
						relabel = flow.BranchNo
						break
					}
				}
			default:
				continue
			}
			g.RemoveEdge(e.Source, e.Target, e.Branch)
			_ = g.AddEdge(flow.Edge{Source: e.Source, Target: e.Target, Branch: relabel, Label: e.Label})
			warnings = append(warnings, Warning{
				Code:   errors.ErrCodeInvalidRow,
				StepID: n.ID,
				Detail: fmt.Sprintf("%s branch not valid on a %s node; relabeled %s", e.Branch, n.Kind, relabel),
			})
		}
	}
	return warnings
}

// dropConflicts removes surplus edges that hand-edited text can introduce:
// a second edge on the same branch keeps only its first occurrence.
func dropConflicts(g *flow.Graph) []Warning {
	var warnings []Warning
	for _, n := range g.Nodes() {
		seen := map[flow.Branch]bool{}
		for _, e := range g.Outgoing(n.ID) {
			if seen[e.Branch] {
				g.RemoveEdge(e.Source, e.Target, e.Branch)
				warnings = append(warnings, Warning{
					Code:   errors.ErrCodeDanglingRef,
					StepID: n.ID,
					Detail: fmt.Sprintf("duplicate %s branch to %q dropped", e.Branch, e.Target),
				})
				continue
			}
			seen[e.Branch] = true
		}
	}
	return warnings
}

func ensureStart(g *flow.Graph) []Warning {
	var warnings []Warning

	var starts []*flow.Node
	for _, n := range g.Nodes() {
		if n.Kind == flow.KindStart {
			starts = append(starts, n)
		}
	}
	for _, extra := range starts[min(len(starts), 1):] {
		extra.Kind = flow.KindTask
		warnings = append(warnings, Warning{
			Code:   errors.ErrCodeInvalidRow,
			StepID: extra.ID,
			Detail: "second start node demoted to task",
		})
	}
	if len(starts) > 0 {
		return warnings
	}

	// Pick the logical entry: the unique node nothing points at.
	var candidates []*flow.Node
	for _, n := range g.Nodes() {
		if g.InDegree(n.ID) == 0 {
			candidates = append(candidates, n)
		}
	}

	nodes := g.Nodes()
	if len(nodes) == 0 {
		// An empty document still yields a valid (trivial) process:
		// start here, end via ensureTerminals.
		_ = g.AddNode(flow.Node{ID: StartID, Kind: flow.KindStart, Label: "Début"})
		return append(warnings, Warning{
			Code:   errors.ErrCodeEmptyInput,
			Detail: "document has no steps; producing an empty process",
		})
	}
	entry := nodes[0]
	switch len(candidates) {
	case 1:
		entry = candidates[0]
	default:
		// Zero candidates (a cycle) or several: fall back to table order.
		warnings = append(warnings, Warning{
			Code:   errors.ErrCodeInvalidRow,
			StepID: entry.ID,
			Detail: fmt.Sprintf("entry point ambiguous (%d candidates); using first row", len(candidates)),
		})
	}

	startID := uniqueID(g, StartID)
	_ = g.AddNode(flow.Node{ID: startID, Kind: flow.KindStart, Label: "Début"})
	_ = g.AddEdge(flow.Edge{Source: startID, Target: entry.ID, Branch: flow.BranchSequential})
	return warnings
}

func ensureConditions(g *flow.Graph) []Warning {
	var warnings []Warning
	for _, n := range g.Nodes() {
		if n.Kind == flow.KindGateway && n.Condition == "" {
			n.Condition = n.DisplayLabel()
			warnings = append(warnings, Warning{
				Code:   errors.ErrCodeInvalidRow,
				StepID: n.ID,
				Detail: "gateway has no condition; using label",
			})
		}
	}
	return warnings
}

// missingBranches returns the branches the node still has to emit before
// it satisfies the outgoing-edge invariant.
func missingBranches(g *flow.Graph, n *flow.Node) []flow.Branch {
	if n.Kind == flow.KindEnd {
		return nil
	}
	has := map[flow.Branch]bool{}
	for _, e := range g.Outgoing(n.ID) {
		has[e.Branch] = true
	}
	if n.Kind == flow.KindGateway {
		var missing []flow.Branch
		for _, b := range []flow.Branch{flow.BranchYes, flow.BranchNo} {
			if !has[b] {
				missing = append(missing, b)
			}
		}
		return missing
	}
	if len(has) == 0 {
		return []flow.Branch{flow.BranchSequential}
	}
	return nil
}

func ensureTerminals(g *flow.Graph) []Warning {
	type gap struct {
		node     string
		branches []flow.Branch
	}
	var gaps []gap
	for _, n := range g.Nodes() {
		if missing := missingBranches(g, n); len(missing) > 0 {
			gaps = append(gaps, gap{node: n.ID, branches: missing})
		}
	}

	var hasEnd bool
	var endID string
	for _, n := range g.Nodes() {
		if n.Kind == flow.KindEnd {
			hasEnd, endID = true, n.ID
			break
		}
	}
	if len(gaps) == 0 && hasEnd {
		return nil
	}
	if !hasEnd {
		endID = uniqueID(g, EndID)
		_ = g.AddNode(flow.Node{ID: endID, Kind: flow.KindEnd, Label: "Fin"})
	}
	for _, gp := range gaps {
		for _, b := range gp.branches {
			_ = g.AddEdge(flow.Edge{Source: gp.node, Target: endID, Branch: b})
		}
	}
	return nil
}

func uniqueID(g *flow.Graph, base string) string {
	id := base
	for i := 1; ; i++ {
		if _, taken := g.Node(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
}
