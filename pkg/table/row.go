// Package table defines the step table: the flat list of process rows that
// is the single source of truth for a session. Every other representation
// (graph, text, markup, XML, visual model) is recomputed from it.
package table

import (
	"fmt"

	"github.com/procflow/procflow/pkg/flow"
)

// RowType discriminates the two row variants.
type RowType string

// Row variants.
const (
	// RowSequential describes a step with a single next step.
	RowSequential RowType = "Sequential"
	// RowConditional describes a gateway with yes/no targets.
	RowConditional RowType = "Conditional"
)

// Row is one step of the process table.
//
// This is a discriminated union - check Type to determine which fields
// are meaningful:
//
//	Sequential:
//	  - Yes: the next step's ID (empty means the process ends here)
//	  - Condition, No: unused
//
//	Conditional:
//	  - Condition: the gateway question
//	  - Yes, No: branch targets (an empty branch ends the process)
//
// Shared fields: ID (unique step identifier), Service (owning role or
// department), Step (short step name), Task (task description).
type Row struct {
	ID        string  `json:"id" bson:"id"`
	Service   string  `json:"service" bson:"service"`
	Step      string  `json:"step,omitempty" bson:"step,omitempty"`
	Task      string  `json:"task" bson:"task"`
	Type      RowType `json:"type" bson:"type"`
	Condition string  `json:"condition,omitempty" bson:"condition,omitempty"`
	Yes       string  `json:"yes,omitempty" bson:"yes,omitempty"`
	No        string  `json:"no,omitempty" bson:"no,omitempty"`
}

// Sequential creates a sequential row. next may be empty when the step is
// the last of its path.
func Sequential(id, service, task, next string) Row {
	return Row{ID: id, Service: service, Task: task, Type: RowSequential, Yes: next}
}

// Conditional creates a conditional (gateway) row. Either branch target may
// be empty; the normalizer connects missing branches to the end node.
func Conditional(id, service, task, condition, yes, no string) Row {
	return Row{ID: id, Service: service, Task: task, Type: RowConditional,
		Condition: condition, Yes: yes, No: no}
}

// Complete reports whether the row carries the structurally required
// columns: ID, Service, Task and a known Type. Incomplete rows are dropped
// by the builder with a warning rather than failing the build.
func (r Row) Complete() bool {
	if r.ID == "" || r.Service == "" || r.Task == "" {
		return false
	}
	return r.Type == RowSequential || r.Type == RowConditional
}

// IsConditional reports whether the row is the conditional variant.
func (r Row) IsConditional() bool { return r.Type == RowConditional }

// Kind returns the node kind the row maps to.
func (r Row) Kind() flow.Kind {
	if r.IsConditional() {
		return flow.KindGateway
	}
	return flow.KindTask
}

// Targets returns the branch targets declared by this row, paired with the
// branch each one rides on. Empty targets are skipped.
func (r Row) Targets() []Target {
	var out []Target
	if r.IsConditional() {
		if r.Yes != "" {
			out = append(out, Target{Branch: flow.BranchYes, Step: r.Yes})
		}
		if r.No != "" {
			out = append(out, Target{Branch: flow.BranchNo, Step: r.No})
		}
		return out
	}
	if r.Yes != "" {
		out = append(out, Target{Branch: flow.BranchSequential, Step: r.Yes})
	}
	return out
}

// Target is one declared outgoing reference of a row.
type Target struct {
	Branch flow.Branch
	Step   string
}

func (t Target) String() string { return fmt.Sprintf("%s->%s", t.Branch, t.Step) }

// FromGraph projects a built graph back onto table rows, the inverse of the
// builder. Synthesized start/end nodes are omitted and edges pointing at the
// synthesized end become empty targets, so building the projected rows again
// yields a structurally equal graph.
func FromGraph(g *flow.Graph) []Row {
	var rows []Row
	for _, n := range g.Nodes() {
		if n.Kind.IsTerminal() {
			continue
		}
		row := Row{
			ID:      n.ID,
			Service: n.Actor,
			Step:    n.Attrs["step"],
			Task:    n.Label,
		}
		if n.Kind == flow.KindGateway {
			row.Type = RowConditional
			row.Condition = n.Condition
		} else {
			row.Type = RowSequential
		}
		for _, e := range g.Outgoing(n.ID) {
			if t, ok := g.Node(e.Target); ok && t.Kind == flow.KindEnd {
				continue // synthesized branch, not a declared target
			}
			switch e.Branch {
			case flow.BranchNo:
				row.No = e.Target
			default:
				row.Yes = e.Target
			}
		}
		rows = append(rows, row)
	}
	return rows
}
