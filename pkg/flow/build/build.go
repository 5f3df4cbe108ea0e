// Package build turns raw table rows into a validated process graph.
//
// The builder is deliberately forgiving: structurally incomplete rows and
// dangling step references are repaired and reported as [Warning] values
// rather than failing the build. Only two defects are fatal: an input with
// zero usable rows and duplicate step IDs.
//
// [Normalize] is the shared repair pass. The builder runs it after mapping
// rows to nodes, and the sync coordinator runs it again on graphs coming
// out of the text parser, which makes hand-edited text subject to the same
// start/end synthesis rules as table input.
package build

import (
	"fmt"

	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/table"
)

// Warning describes a defect the builder repaired instead of failing on.
type Warning struct {
	Code   errors.Code
	StepID string // offending step, empty for graph-level repairs
	Detail string
}

func (w Warning) String() string {
	if w.StepID == "" {
		return fmt.Sprintf("[%s] %s", w.Code, w.Detail)
	}
	return fmt.Sprintf("[%s] step %s: %s", w.Code, w.StepID, w.Detail)
}

// FromRows builds a normalized graph from table rows.
//
// Incomplete rows (missing id, service, task or a known type) are dropped
// with a warning. Targets referencing unknown or identical step IDs are
// dropped with a warning. Duplicate step IDs are fatal, as is an input
// where no usable row remains.
//
// The returned graph always satisfies [flow.Graph.Validate].
func FromRows(rows []table.Row) (*flow.Graph, []Warning, error) {
	var warnings []Warning

	// Step-id uniqueness is enforced before any graph construction.
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		if seen[row.ID] {
			return nil, warnings, errors.New(errors.ErrCodeDuplicateStep,
				"duplicate step id %q", row.ID)
		}
		seen[row.ID] = true
	}

	var usable []table.Row
	for _, row := range rows {
		if !row.Complete() {
			warnings = append(warnings, Warning{
				Code:   errors.ErrCodeInvalidRow,
				StepID: row.ID,
				Detail: "row is missing id, service, task or a known type; dropped",
			})
			continue
		}
		usable = append(usable, row)
	}
	if len(usable) == 0 {
		return nil, warnings, errors.New(errors.ErrCodeEmptyInput, "no usable rows")
	}

	g := flow.New(nil)
	for _, row := range usable {
		n := flow.Node{
			ID:    row.ID,
			Kind:  row.Kind(),
			Label: row.Task,
			Actor: row.Service,
			Attrs: map[string]string{},
		}
		if row.Step != "" {
			n.Attrs["step"] = row.Step
		}
		if n.Kind == flow.KindGateway {
			n.Condition = row.Condition
			if n.Condition == "" {
				n.Condition = row.Task
				warnings = append(warnings, Warning{
					Code:   errors.ErrCodeInvalidRow,
					StepID: row.ID,
					Detail: "conditional row has no condition; using task text",
				})
			}
		}
		if err := g.AddNode(n); err != nil {
			// Uniqueness was checked above; anything here is a programming error.
			return nil, warnings, errors.Wrap(errors.ErrCodeInternal, err, "add step %q", row.ID)
		}
	}

	for _, row := range usable {
		for _, target := range row.Targets() {
			if target.Step == row.ID {
				warnings = append(warnings, Warning{
					Code:   errors.ErrCodeDanglingRef,
					StepID: row.ID,
					Detail: fmt.Sprintf("%s branch points at the step itself; dropped", target.Branch),
				})
				continue
			}
			if _, ok := g.Node(target.Step); !ok {
				warnings = append(warnings, Warning{
					Code:   errors.ErrCodeDanglingRef,
					StepID: row.ID,
					Detail: fmt.Sprintf("%s branch references unknown step %q; dropped", target.Branch, target.Step),
				})
				continue
			}
			if err := g.AddEdge(flow.Edge{Source: row.ID, Target: target.Step, Branch: target.Branch}); err != nil {
				return nil, warnings, errors.Wrap(errors.ErrCodeInternal, err,
					"connect %q to %q", row.ID, target.Step)
			}
		}
	}

	warnings = append(warnings, Normalize(g)...)
	return g, warnings, nil
}
