package mermaid

import (
	"strings"
	"testing"

	"github.com/procflow/procflow/pkg/flow"
)

func buildGraph(t *testing.T) *flow.Graph {
	t.Helper()
	g := flow.New(nil)
	nodes := []flow.Node{
		{ID: "start", Kind: flow.KindStart, Label: "Début"},
		{ID: "1.1", Kind: flow.KindTask, Label: "Saisir la demande", Actor: "Accueil"},
		{ID: "1.2", Kind: flow.KindGateway, Label: "Complet ?", Actor: "Contrôle", Condition: "Complet ?"},
		{ID: "end", Kind: flow.KindEnd, Label: "Fin"},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	edges := []flow.Edge{
		{Source: "start", Target: "1.1"},
		{Source: "1.1", Target: "1.2"},
		{Source: "1.2", Target: "end", Branch: flow.BranchYes},
		{Source: "1.2", Target: "1.1", Branch: flow.BranchNo},
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s->%s): %v", e.Source, e.Target, err)
		}
	}
	return g
}

func TestGenerateShapes(t *testing.T) {
	out := Generate(buildGraph(t))

	tests := []struct {
		name string
		want string
	}{
		{"header", "graph TD\n"},
		{"start circle", `nstart(("Début"))`},
		{"task rectangle", `n1_1["Saisir la demande"]`},
		{"gateway diamond", `n1_2{"Complet ?"}`},
		{"end stadium", `nend(["Fin"])`},
		{"yes edge", `n1_2 -->|Oui| nend`},
		{"no edge", `n1_2 -->|Non| n1_1`},
		{"plain edge", `nstart --> n1_1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q\n%s", tt.want, out)
			}
		})
	}
}

func TestGenerateActorClasses(t *testing.T) {
	out := Generate(buildGraph(t))

	for _, want := range []string{
		"classDef terminal fill:#7f7f7f",
		"classDef actor_Accueil fill:",
		"classDef actor_Contrôle fill:",
		"class nstart terminal",
		"class n1_1 actor_Accueil",
		"class n1_2 actor_Contrôle",
		"class nend terminal",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first := Generate(buildGraph(t))
	second := Generate(buildGraph(t))
	if first != second {
		t.Error("output differs between runs")
	}
}

func TestLabelEscaping(t *testing.T) {
	g := flow.New(nil)
	if err := g.AddNode(flow.Node{ID: "a", Kind: flow.KindTask, Label: "Dire \"bonjour\"\nau client"}); err != nil {
		t.Fatal(err)
	}
	out := Generate(g)
	if strings.Contains(out, "\"bonjour\"") {
		t.Errorf("unescaped quote in output:\n%s", out)
	}
	if !strings.Contains(out, "#quot;bonjour#quot;") {
		t.Errorf("expected quote entity in output:\n%s", out)
	}
}
