package visual

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/procflow/procflow/pkg/flow"
)

func placedGraph(t *testing.T) *flow.Graph {
	t.Helper()
	g := flow.New(nil)
	nodes := []flow.Node{
		{ID: "start", Kind: flow.KindStart, Label: "Début", X: 400, Y: 40, Placed: true},
		{ID: "1.1", Kind: flow.KindTask, Label: "Instruire", Actor: "Instruction", X: 400, Y: 160, Placed: true},
		{ID: "end", Kind: flow.KindEnd, Label: "Fin", X: 400, Y: 280, Placed: true},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []flow.Edge{
		{Source: "start", Target: "1.1"},
		{Source: "1.1", Target: "end"},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestFromGraph(t *testing.T) {
	m := FromGraph(placedGraph(t))

	if len(m.Nodes) != 3 || len(m.Edges) != 2 {
		t.Fatalf("got %d nodes, %d edges, want 3 and 2", len(m.Nodes), len(m.Edges))
	}
	if m.Nodes[1].Position.X != 400 || m.Nodes[1].Position.Y != 160 {
		t.Errorf("position = %+v, want layout coordinates", m.Nodes[1].Position)
	}
	if m.Nodes[1].Data.Actor != "Instruction" {
		t.Errorf("actor = %q, want Instruction", m.Nodes[1].Data.Actor)
	}

	seen := map[string]bool{}
	for _, e := range m.Edges {
		if e.ID == "" {
			t.Error("edge without id")
		}
		if seen[e.ID] {
			t.Errorf("duplicate edge id %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestRoundTripThroughModel(t *testing.T) {
	orig := placedGraph(t)
	g, err := ToGraph(FromGraph(orig))
	if err != nil {
		t.Fatalf("ToGraph: %v", err)
	}
	if !flow.Equal(orig, g) {
		t.Error("graph changed through visual projection")
	}
	n, _ := g.Node("1.1")
	if !n.Placed || n.Y != 160 {
		t.Errorf("position lost: placed=%v y=%v", n.Placed, n.Y)
	}
}

func TestToGraphDefaultsKind(t *testing.T) {
	m := Model{Nodes: []Node{{ID: "a"}}}
	g, err := ToGraph(m)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := g.Node("a")
	if n.Kind != flow.KindTask {
		t.Errorf("kind = %s, want task", n.Kind)
	}
}

func TestToGraphRejectsDanglingEdge(t *testing.T) {
	m := Model{
		Nodes: []Node{{ID: "a", Kind: flow.KindTask}},
		Edges: []Edge{{ID: "e1", Source: "a", Target: "missing"}},
	}
	if _, err := ToGraph(m); !errors.Is(err, flow.ErrUnknownTargetNode) {
		t.Errorf("err = %v, want ErrUnknownTargetNode", err)
	}
}

func TestModelJSONShape(t *testing.T) {
	m := FromGraph(placedGraph(t))
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	nodes, ok := decoded["nodes"].([]any)
	if !ok || len(nodes) != 3 {
		t.Fatalf("nodes field missing or wrong length: %v", decoded["nodes"])
	}
	first, _ := nodes[0].(map[string]any)
	if _, ok := first["position"]; !ok {
		t.Error("node missing position field")
	}
	if _, ok := first["data"]; !ok {
		t.Error("node missing data field")
	}
}
