package flow

import (
	"errors"
	"testing"
)

// valid builds the smallest normalized graph: start -> task -> end.
func valid() *Graph {
	g := New(nil)
	g.AddNode(Node{ID: "start", Kind: KindStart})
	g.AddNode(Node{ID: "1.1", Kind: KindTask, Label: "Do the thing"})
	g.AddNode(Node{ID: "end", Kind: KindEnd})
	g.AddEdge(Edge{Source: "start", Target: "1.1"})
	g.AddEdge(Edge{Source: "1.1", Target: "end"})
	return g
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Graph
		wantErr error
	}{
		{
			name:  "Minimal",
			build: valid,
		},
		{
			name: "GatewayDiamond",
			build: func() *Graph {
				g := New(nil)
				g.AddNode(Node{ID: "start", Kind: KindStart})
				g.AddNode(Node{ID: "q", Kind: KindGateway, Condition: "Complete?"})
				g.AddNode(Node{ID: "a", Kind: KindTask})
				g.AddNode(Node{ID: "end", Kind: KindEnd})
				g.AddEdge(Edge{Source: "start", Target: "q"})
				g.AddEdge(Edge{Source: "q", Target: "a", Branch: BranchYes})
				g.AddEdge(Edge{Source: "q", Target: "end", Branch: BranchNo})
				g.AddEdge(Edge{Source: "a", Target: "end"})
				return g
			},
		},
		{
			name: "NoStart",
			build: func() *Graph {
				g := New(nil)
				g.AddNode(Node{ID: "1.1", Kind: KindTask})
				g.AddNode(Node{ID: "end", Kind: KindEnd})
				g.AddEdge(Edge{Source: "1.1", Target: "end"})
				return g
			},
			wantErr: ErrNoStartNode,
		},
		{
			name: "TwoStarts",
			build: func() *Graph {
				g := valid()
				g.AddNode(Node{ID: "start2", Kind: KindStart})
				g.AddEdge(Edge{Source: "start2", Target: "1.1"})
				return g
			},
			wantErr: ErrMultipleStartNodes,
		},
		{
			name: "NoEnd",
			build: func() *Graph {
				g := New(nil)
				g.AddNode(Node{ID: "start", Kind: KindStart})
				g.AddNode(Node{ID: "1.1", Kind: KindTask})
				g.AddEdge(Edge{Source: "start", Target: "1.1"})
				g.AddEdge(Edge{Source: "1.1", Target: "start"})
				return g
			},
			wantErr: ErrNoEndNode,
		},
		{
			name: "Dangling",
			build: func() *Graph {
				g := valid()
				g.AddNode(Node{ID: "orphan", Kind: KindTask})
				return g
			},
			wantErr: ErrDanglingNode,
		},
		{
			name: "GatewayWithoutCondition",
			build: func() *Graph {
				g := valid()
				g.AddNode(Node{ID: "q", Kind: KindGateway})
				g.AddEdge(Edge{Source: "q", Target: "end", Branch: BranchYes})
				return g
			},
			wantErr: ErrMissingCondition,
		},
		{
			name: "YesBranchFromTask",
			build: func() *Graph {
				g := valid()
				g.AddNode(Node{ID: "t", Kind: KindTask})
				g.AddEdge(Edge{Source: "t", Target: "end", Branch: BranchYes})
				return g
			},
			wantErr: ErrBranchMisuse,
		},
		{
			name: "SequentialFromGateway",
			build: func() *Graph {
				g := valid()
				g.AddNode(Node{ID: "q", Kind: KindGateway, Condition: "ok?"})
				g.AddEdge(Edge{Source: "q", Target: "end"})
				return g
			},
			wantErr: ErrBranchMisuse,
		},
		{
			name: "DuplicateBranch",
			build: func() *Graph {
				g := valid()
				g.AddNode(Node{ID: "t", Kind: KindTask})
				g.AddEdge(Edge{Source: "t", Target: "end"})
				g.AddEdge(Edge{Source: "t", Target: "1.1"})
				return g
			},
			wantErr: ErrBranchConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := valid()
	b := valid()
	if !Equal(a, b) {
		t.Fatal("identical builds not Equal")
	}

	// Different positions are still equal: layout output is ephemeral.
	n, _ := b.Node("1.1")
	n.X, n.Y, n.Placed = 240, 80, true
	if !Equal(a, b) {
		t.Error("positions should not affect Equal")
	}

	// A changed label is a structural difference.
	n.Label = "Something else"
	if Equal(a, b) {
		t.Error("label change should break Equal")
	}
	n.Label = "Do the thing"

	// A changed branch is a structural difference.
	c := New(nil)
	c.AddNode(Node{ID: "start", Kind: KindStart})
	c.AddNode(Node{ID: "1.1", Kind: KindTask, Label: "Do the thing"})
	c.AddNode(Node{ID: "end", Kind: KindEnd})
	c.AddEdge(Edge{Source: "start", Target: "1.1"})
	c.AddEdge(Edge{Source: "1.1", Target: "end", Label: "autre"})
	if !Equal(a, c) {
		t.Error("edge label override should not affect Equal")
	}
}
