package flow

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the Source
	// node does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the Target
	// node does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfLoop is returned by [Graph.AddEdge] when Source and Target are
	// the same node. Process steps never connect to themselves.
	ErrSelfLoop = errors.New("edge source and target must differ")
)

// Kind classifies a process node.
type Kind string

// Node kinds.
const (
	KindStart   Kind = "start"
	KindEnd     Kind = "end"
	KindTask    Kind = "task"
	KindGateway Kind = "gateway"
)

// IsTerminal reports whether the kind marks a process boundary (start or end).
func (k Kind) IsTerminal() bool { return k == KindStart || k == KindEnd }

// Branch classifies an outgoing edge.
type Branch string

// Edge branches. Gateways emit at most one yes and one no branch;
// every other node emits at most one sequential branch.
const (
	BranchSequential Branch = "sequential"
	BranchYes        Branch = "yes"
	BranchNo         Branch = "no"
)

// DefaultLabel returns the display label derived from the branch:
// empty for sequential flow, "Oui"/"Non" for gateway branches.
func (b Branch) DefaultLabel() string {
	switch b {
	case BranchYes:
		return "Oui"
	case BranchNo:
		return "Non"
	default:
		return ""
	}
}

// Node represents one process element: a task, a gateway question, or a
// synthesized start/end marker. Position (X, Y) and Level are assigned by
// the layout engine; they are ephemeral and recomputed on every rebuild,
// never treated as source of truth.
//
// Attrs carries opaque key/value pairs from the text notation that the
// compiler does not interpret but must preserve for round-tripping.
//
// The zero value is not usable - ID and Kind must be set before adding
// to a Graph.
type Node struct {
	ID        string
	Kind      Kind
	Label     string
	Actor     string
	Condition string // set only when Kind == KindGateway
	Attrs     map[string]string

	// Layout output. Placed is false until the layout engine runs.
	// Unreachable marks nodes the start-rooted traversal never visited;
	// they still receive a fallback position.
	X, Y        float64
	Level       int
	Placed      bool
	Unreachable bool
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// IsSynthetic reports whether the node was synthesized by the normalizer
// rather than declared by a table row (start and end markers).
func (n *Node) IsSynthetic() bool { return n.Kind.IsTerminal() }

// Edge represents a directed connection between two node IDs.
// Label defaults to the branch's display label unless overridden.
type Edge struct {
	Source string
	Target string
	Branch Branch
	Label  string
}

// DisplayLabel returns the explicit label if set, otherwise the label
// derived from the branch.
func (e Edge) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Branch.DefaultLabel()
}

// Graph is the canonical in-memory representation of a process: the single
// model every representation (table, text, flowchart markup, interchange
// XML, visual editor) is compiled from and to.
//
// Nodes iterate in insertion order, which makes every derived artifact
// deterministic for a given build sequence. A Graph is built fresh on each
// edit cycle and discarded once its derived representations exist; it is
// not safe for concurrent use.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]int // node ID -> indices into edges
	incoming map[string][]int
	attrs    map[string]string
}

// New creates an empty graph with optional graph-level attributes
// (e.g. rankdir from the text notation). attrs may be nil.
func New(attrs map[string]string) *Graph {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]int),
		attrs:    attrs,
	}
}

// Attrs returns the graph-level attribute map. Never nil.
func (g *Graph) Attrs() map[string]string { return g.attrs }

// AddNode adds a node to the graph. Returns ErrInvalidNodeID if the ID is
// empty or ErrDuplicateNodeID if the ID is already taken. The node's Attrs
// map is initialized to an empty map if nil.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	node := &n
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode, ErrUnknownTargetNode, or ErrSelfLoop when
// the endpoints do not form a valid connection.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return ErrUnknownTargetNode
	}
	if e.Source == e.Target {
		return ErrSelfLoop
	}
	if e.Branch == "" {
		e.Branch = BranchSequential
	}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], idx)
	g.incoming[e.Target] = append(g.incoming[e.Target], idx)
	return nil
}

// RemoveEdge removes the first edge matching source, target and branch.
// No error is returned if no such edge exists.
func (g *Graph) RemoveEdge(source, target string, branch Branch) {
	kept := make([]Edge, 0, len(g.edges))
	removed := false
	for _, e := range g.edges {
		if !removed && e.Source == source && e.Target == target && e.Branch == branch {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return
	}
	g.edges = kept
	g.outgoing = make(map[string][]int)
	g.incoming = make(map[string][]int)
	for i, e := range g.edges {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], i)
		g.incoming[e.Target] = append(g.incoming[e.Target], i)
	}
}

// Node returns the node with the given ID and true, or nil and false.
// The pointer refers to the actual node, so field updates (label, position)
// are visible through the graph.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Outgoing returns the edges leaving the node, in insertion order.
func (g *Graph) Outgoing(id string) []Edge {
	idxs := g.outgoing[id]
	edges := make([]Edge, len(idxs))
	for i, idx := range idxs {
		edges[i] = g.edges[idx]
	}
	return edges
}

// Incoming returns the edges arriving at the node, in insertion order.
func (g *Graph) Incoming(id string) []Edge {
	idxs := g.incoming[id]
	edges := make([]Edge, len(idxs))
	for i, idx := range idxs {
		edges[i] = g.edges[idx]
	}
	return edges
}

// OutDegree returns the number of outgoing edges from the node.
func (g *Graph) OutDegree(id string) int { return len(g.outgoing[id]) }

// InDegree returns the number of incoming edges to the node.
func (g *Graph) InDegree(id string) int { return len(g.incoming[id]) }

// Children returns the target IDs of the node's outgoing edges.
func (g *Graph) Children(id string) []string {
	var out []string
	for _, idx := range g.outgoing[id] {
		out = append(out, g.edges[idx].Target)
	}
	return out
}

// Parents returns the source IDs of the node's incoming edges.
func (g *Graph) Parents(id string) []string {
	var out []string
	for _, idx := range g.incoming[id] {
		out = append(out, g.edges[idx].Source)
	}
	return out
}

// Start returns the unique start node and true, or nil and false when the
// graph has no start node (e.g. a hand-edited text graph before repair).
func (g *Graph) Start() (*Node, bool) {
	for _, id := range g.order {
		if g.nodes[id].Kind == KindStart {
			return g.nodes[id], true
		}
	}
	return nil, false
}

// Sources returns nodes with no incoming edges, in insertion order.
// After normalization the only source is the start node.
func (g *Graph) Sources() []*Node {
	var out []*Node
	for _, id := range g.order {
		if len(g.incoming[id]) == 0 {
			out = append(out, g.nodes[id])
		}
	}
	return out
}

// Sinks returns nodes with no outgoing edges, in insertion order.
// After normalization every sink is an end node.
func (g *Graph) Sinks() []*Node {
	var out []*Node
	for _, id := range g.order {
		if len(g.outgoing[id]) == 0 {
			out = append(out, g.nodes[id])
		}
	}
	return out
}

// Clone returns a deep copy of the graph. Node attribute maps are copied;
// the clone shares no mutable state with the original.
func (g *Graph) Clone() *Graph {
	out := New(copyAttrs(g.attrs))
	for _, n := range g.Nodes() {
		nn := *n
		nn.Attrs = copyAttrs(n.Attrs)
		_ = out.AddNode(nn)
	}
	for _, e := range g.edges {
		_ = out.AddEdge(e)
	}
	return out
}

func copyAttrs(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
