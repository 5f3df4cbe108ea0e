package bpmn

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/procflow/procflow/pkg/flow"
)

func buildGraph(t *testing.T) *flow.Graph {
	t.Helper()
	g := flow.New(nil)
	nodes := []flow.Node{
		{ID: "start", Kind: flow.KindStart, Label: "Début"},
		{ID: "1.1", Kind: flow.KindTask, Label: "Vérifier la pièce", Actor: "Contrôle", Attrs: map[string]string{"step": "1"}},
		{ID: "1.2", Kind: flow.KindGateway, Label: "Conforme ?", Condition: "Conforme ?", Attrs: map[string]string{"step": "2"}},
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

func TestGenerateWellFormed(t *testing.T) {
	out, err := Generate(buildGraph(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var doc struct {
		XMLName xml.Name `xml:"Definitions"`
		Process struct {
			ID       string `xml:"id,attr"`
			Starts   []struct{ ID string `xml:"id,attr"` } `xml:"StartEvent"`
			Tasks    []struct{ ID string `xml:"id,attr"` } `xml:"Task"`
			Gateways []struct {
				ID   string `xml:"id,attr"`
				Name string `xml:"name,attr"`
			} `xml:"ExclusiveGateway"`
			Ends  []struct{ ID string `xml:"id,attr"` } `xml:"EndEvent"`
			Flows []struct {
				Source string `xml:"sourceRef,attr"`
				Target string `xml:"targetRef,attr"`
				Name   string `xml:"name,attr"`
			} `xml:"SequenceFlow"`
		} `xml:"Process"`
	}
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not well formed: %v\n%s", err, out)
	}

	if doc.Process.ID != "Process_1" {
		t.Errorf("process id = %q, want Process_1", doc.Process.ID)
	}
	if len(doc.Process.Starts) != 1 || len(doc.Process.Tasks) != 1 || len(doc.Process.Gateways) != 1 || len(doc.Process.Ends) != 1 {
		t.Fatalf("element counts = %d/%d/%d/%d, want 1 each",
			len(doc.Process.Starts), len(doc.Process.Tasks), len(doc.Process.Gateways), len(doc.Process.Ends))
	}
	if got := doc.Process.Tasks[0].ID; got != "Task_1" {
		t.Errorf("task id = %q, want Task_1", got)
	}
	if got := doc.Process.Gateways[0].ID; got != "Gateway_2" {
		t.Errorf("gateway id = %q, want Gateway_2", got)
	}
	if got := doc.Process.Gateways[0].Name; got != "Conforme ?" {
		t.Errorf("gateway name = %q, want condition text", got)
	}
	if len(doc.Process.Flows) != 4 {
		t.Fatalf("flow count = %d, want 4", len(doc.Process.Flows))
	}
	if doc.Process.Flows[2].Name != "Oui" || doc.Process.Flows[3].Name != "Non" {
		t.Errorf("branch flow names = %q/%q, want Oui/Non",
			doc.Process.Flows[2].Name, doc.Process.Flows[3].Name)
	}
}

func TestGenerateStableIDs(t *testing.T) {
	first, err := Generate(buildGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Generate(buildGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("output differs between runs")
	}
	if !strings.Contains(first, Namespace) {
		t.Errorf("output missing namespace %q", Namespace)
	}
}

func TestGenerateWithoutStepFallsBackToID(t *testing.T) {
	g := flow.New(nil)
	if err := g.AddNode(flow.Node{ID: "1.4", Kind: flow.KindTask, Label: "Classer"}); err != nil {
		t.Fatal(err)
	}
	out, err := Generate(g)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out, `id="Task_1_4"`) {
		t.Errorf("expected sanitized id Task_1_4 in output:\n%s", out)
	}
}

func TestGenerateIncompleteGraphStillWellFormed(t *testing.T) {
	// No start node: semantically incomplete but serializable.
	g := flow.New(nil)
	if err := g.AddNode(flow.Node{ID: "a", Kind: flow.KindTask, Label: "Tâche"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(flow.Node{ID: "end", Kind: flow.KindEnd, Label: "Fin"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(flow.Edge{Source: "a", Target: "end"}); err != nil {
		t.Fatal(err)
	}

	out, err := Generate(g)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var doc struct {
		XMLName xml.Name `xml:"Definitions"`
	}
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not well formed: %v", err)
	}
}
