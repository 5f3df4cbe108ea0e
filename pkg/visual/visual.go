// Package visual defines the node/edge model exchanged with the rendering
// layer: JSON-serializable nodes carrying layout positions and display
// data, and edges carrying branch semantics. The model is a projection of
// the process graph, rebuilt wholesale on every edit cycle.
package visual

import (
	"github.com/google/uuid"

	"github.com/procflow/procflow/pkg/flow"
)

// Position is a 2-D canvas coordinate.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// NodeData is the display payload of a visual node.
type NodeData struct {
	Label     string `json:"label" bson:"label"`
	Actor     string `json:"actor,omitempty" bson:"actor,omitempty"`
	Condition string `json:"condition,omitempty" bson:"condition,omitempty"`
}

// Node is one rendered process element.
type Node struct {
	ID       string    `json:"id" bson:"id"`
	Kind     flow.Kind `json:"kind" bson:"kind"`
	Position Position  `json:"position" bson:"position"`
	Data     NodeData  `json:"data" bson:"data"`
}

// Edge is one rendered connection. ID is assigned by this package when
// projecting a graph; the rendering layer keeps it stable across moves so
// selection survives a rebuild of unrelated parts.
type Edge struct {
	ID     string      `json:"id" bson:"id"`
	Source string      `json:"source" bson:"source"`
	Target string      `json:"target" bson:"target"`
	Branch flow.Branch `json:"branch" bson:"branch"`
	Label  string      `json:"label,omitempty" bson:"label,omitempty"`
}

// Model is the full scene handed to the rendering layer.
type Model struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// FromGraph projects a laid-out graph into the visual model. Node order
// follows graph insertion order; edge ids are fresh UUIDs on every
// projection (the scene is replaced wholesale, not patched).
func FromGraph(g *flow.Graph) Model {
	m := Model{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		m.Nodes = append(m.Nodes, Node{
			ID:       n.ID,
			Kind:     n.Kind,
			Position: Position{X: n.X, Y: n.Y},
			Data: NodeData{
				Label:     n.Label,
				Actor:     n.Actor,
				Condition: n.Condition,
			},
		})
	}
	for _, e := range g.Edges() {
		m.Edges = append(m.Edges, Edge{
			ID:     uuid.NewString(),
			Source: e.Source,
			Target: e.Target,
			Branch: e.Branch,
			Label:  e.Label,
		})
	}
	return m
}

// ToGraph rebuilds a process graph from a visual model, typically after
// the user added or reconnected elements on the canvas. Positions carry
// over so a structural edit does not snap unrelated nodes back to their
// computed spots before the next layout pass.
func ToGraph(m Model) (*flow.Graph, error) {
	g := flow.New(nil)
	for _, n := range m.Nodes {
		node := flow.Node{
			ID:        n.ID,
			Kind:      n.Kind,
			Label:     n.Data.Label,
			Actor:     n.Data.Actor,
			Condition: n.Data.Condition,
			X:         n.Position.X,
			Y:         n.Position.Y,
			Placed:    true,
		}
		if node.Kind == "" {
			node.Kind = flow.KindTask
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, e := range m.Edges {
		if err := g.AddEdge(flow.Edge{
			Source: e.Source,
			Target: e.Target,
			Branch: e.Branch,
			Label:  e.Label,
		}); err != nil {
			return nil, err
		}
	}
	return g, nil
}
