package table

import (
	"strings"
	"testing"

	"github.com/procflow/procflow/pkg/flow"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{name: "Sequential", row: Sequential("1.1", "Compta", "Saisir la facture", "1.2"), want: true},
		{name: "Conditional", row: Conditional("1.2", "Compta", "Vérifier", "Montant > 1000 ?", "1.3", ""), want: true},
		{name: "MissingID", row: Row{Service: "Compta", Task: "x", Type: RowSequential}, want: false},
		{name: "MissingService", row: Row{ID: "1.1", Task: "x", Type: RowSequential}, want: false},
		{name: "MissingTask", row: Row{ID: "1.1", Service: "Compta", Type: RowSequential}, want: false},
		{name: "UnknownType", row: Row{ID: "1.1", Service: "Compta", Task: "x", Type: "Parallel"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTargets(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want []Target
	}{
		{
			name: "SequentialNext",
			row:  Sequential("1.1", "A", "x", "1.2"),
			want: []Target{{flow.BranchSequential, "1.2"}},
		},
		{
			name: "SequentialLast",
			row:  Sequential("1.1", "A", "x", ""),
			want: nil,
		},
		{
			name: "ConditionalBoth",
			row:  Conditional("1.1", "A", "x", "ok?", "1.2", "1.3"),
			want: []Target{{flow.BranchYes, "1.2"}, {flow.BranchNo, "1.3"}},
		},
		{
			name: "ConditionalYesOnly",
			row:  Conditional("1.1", "A", "x", "ok?", "1.2", ""),
			want: []Target{{flow.BranchYes, "1.2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.row.Targets()
			if len(got) != len(tt.want) {
				t.Fatalf("Targets() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Targets()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"ID,Service,Step,Task,Type,Condition,Yes,No",
		"1.1,Compta,Réception,Recevoir la facture,Sequential,,1.2,",
		`1.2,Compta,Contrôle,Vérifier le montant,Conditional,"Montant > 1000 ?",1.3,1.4`,
	}, "\n")

	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Type != RowSequential || rows[0].Yes != "1.2" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Condition != "Montant > 1000 ?" || rows[1].No != "1.4" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestReadCSVUnknownHeader(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("foo,bar\n1,2\n")); err == nil {
		t.Fatal("expected error for unrecognized header")
	}
}

func TestMergeFillsOnlyEmpty(t *testing.T) {
	rows := []Row{
		Sequential("1.1", "", "", "1.2"),
		Sequential("1.2", "Compta", "Archiver", ""),
	}
	enriched := Merge(rows, []Enrichment{
		{ID: "1.1", Label: "Recevoir la facture", Actor: "Courrier"},
		{ID: "1.2", Label: "Should not overwrite", Department: "Autre"},
		{ID: "9.9", Label: "No matching row"},
	})

	if enriched[0].Task != "Recevoir la facture" || enriched[0].Service != "Courrier" {
		t.Errorf("row 0 not filled: %+v", enriched[0])
	}
	if enriched[1].Task != "Archiver" || enriched[1].Service != "Compta" {
		t.Errorf("row 1 overwritten: %+v", enriched[1])
	}
	// Original slice untouched.
	if rows[0].Task != "" {
		t.Error("Merge mutated its input")
	}
}
