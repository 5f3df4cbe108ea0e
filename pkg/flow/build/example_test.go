package build_test

import (
	"fmt"

	"github.com/procflow/procflow/pkg/flow/build"
	"github.com/procflow/procflow/pkg/table"
)

func ExampleFromRows() {
	// Two sequential steps; the builder synthesizes the start and end
	// markers around them.
	rows := []table.Row{
		table.Sequential("1.1", "Agent", "Réception du dossier", "1.2"),
		table.Sequential("1.2", "Back-office", "Contrôle des pièces", ""),
	}

	g, warnings, err := build.FromRows(rows)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Warnings:", len(warnings))
	// Output:
	// Nodes: 4
	// Edges: 3
	// Warnings: 0
}

func ExampleFromRows_danglingReference() {
	// The second row points at a step that does not exist. The builder
	// drops the reference, reports it, and routes the step to the end
	// marker instead.
	rows := []table.Row{
		table.Sequential("1.1", "Agent", "Réception du dossier", "1.2"),
		table.Sequential("1.2", "Back-office", "Contrôle des pièces", "9.9"),
	}

	g, warnings, err := build.FromRows(rows)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	for _, w := range warnings {
		fmt.Println(w)
	}
	fmt.Println("Nodes:", g.NodeCount())
	// Output:
	// [VALIDATION_DANGLING_REFERENCE] step 1.2: sequential branch references unknown step "9.9"; dropped
	// Nodes: 4
}
