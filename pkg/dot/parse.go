package dot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/procflow/procflow/pkg/flow"
)

// ParseError reports a malformed statement in the graph-description text.
// It carries the offending fragment so the editor can point at it; the
// caller keeps the last known-good graph instead of clearing the view.
type ParseError struct {
	Line     int
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s: %q", e.Line, e.Reason, e.Fragment)
}

// Parse parses the graph-description notation into a graph.
//
// The notation is line-oriented: a digraph header, one optional graph
// attribute block, node statements (`"id" [shape=..., label=...]`) and
// edge statements (`"a" -> "b" [label=...]`). Unknown node attributes are
// preserved opaquely for round-tripping. Edge statements may reference
// steps that have no node statement; such steps are declared implicitly.
//
// The result is not guaranteed to satisfy the process invariants (the text
// may omit a start node, for example); callers run the builder's repair
// pass before layout.
func Parse(text string) (*flow.Graph, error) {
	p := parser{
		declared:   map[string]*nodeDecl{},
		graphAttrs: map[string]string{},
	}

	opened, closed := false, false
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		lineNo := i + 1
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case !opened:
			if !strings.HasPrefix(line, "digraph") || !strings.HasSuffix(line, "{") {
				return nil, &ParseError{Line: lineNo, Fragment: line, Reason: "expected digraph header"}
			}
			opened = true
		case line == "}":
			closed = true
		case closed:
			return nil, &ParseError{Line: lineNo, Fragment: line, Reason: "statement after closing brace"}
		default:
			if err := p.statement(line, lineNo); err != nil {
				return nil, err
			}
		}
	}
	if !opened {
		return nil, &ParseError{Line: 1, Fragment: strings.TrimSpace(text), Reason: "expected digraph header"}
	}
	if !closed {
		return nil, &ParseError{Line: 0, Fragment: "", Reason: "missing closing brace"}
	}

	return p.build()
}

type nodeDecl struct {
	id    string
	attrs map[string]string
}

type edgeDecl struct {
	source, target string
	label          string
	line           int
}

type parser struct {
	declared   map[string]*nodeDecl
	order      []string
	edges      []edgeDecl
	graphAttrs map[string]string
}

func (p *parser) statement(line string, lineNo int) error {
	stmt := strings.TrimSuffix(line, ";")

	body, attrs, err := splitAttrBlock(stmt, lineNo)
	if err != nil {
		return err
	}
	body = strings.TrimSpace(body)

	parts, err := splitArrow(body, lineNo, stmt)
	if err != nil {
		return err
	}

	if len(parts) == 1 {
		id, err := unquoteID(parts[0], lineNo, stmt)
		if err != nil {
			return err
		}
		if id == "graph" {
			for k, v := range attrs {
				p.graphAttrs[k] = v
			}
			return nil
		}
		p.declare(id, attrs)
		return nil
	}

	for i := 0; i+1 < len(parts); i++ {
		src, err := unquoteID(parts[i], lineNo, stmt)
		if err != nil {
			return err
		}
		dst, err := unquoteID(parts[i+1], lineNo, stmt)
		if err != nil {
			return err
		}
		p.declare(src, nil)
		p.declare(dst, nil)
		p.edges = append(p.edges, edgeDecl{
			source: src,
			target: dst,
			label:  attrs[attrLabel],
			line:   lineNo,
		})
	}
	return nil
}

// declare records a node, merging attributes when a node statement follows
// an implicit declaration through an edge.
func (p *parser) declare(id string, attrs map[string]string) {
	d, ok := p.declared[id]
	if !ok {
		d = &nodeDecl{id: id, attrs: map[string]string{}}
		p.declared[id] = d
		p.order = append(p.order, id)
	}
	for k, v := range attrs {
		d.attrs[k] = v
	}
}

func (p *parser) build() (*flow.Graph, error) {
	g := flow.New(copyInto(map[string]string{}, p.graphAttrs))

	for _, id := range p.order {
		d := p.declared[id]
		n := flow.Node{
			ID:    id,
			Kind:  shapeKind(d.attrs[attrShape]),
			Label: d.attrs[attrLabel],
			Actor: d.attrs[attrActor],
			Attrs: map[string]string{},
		}
		if n.Kind == flow.KindGateway {
			n.Condition = d.attrs[attrCondition]
		}
		for k, v := range d.attrs {
			switch k {
			case attrShape, attrLabel, attrActor, attrCondition:
			default:
				n.Attrs[k] = v
			}
		}
		if err := g.AddNode(n); err != nil {
			return nil, &ParseError{Fragment: id, Reason: err.Error()}
		}
	}

	for _, e := range p.edges {
		src, _ := g.Node(e.source)
		branch, label := inferBranch(g, src, e.label)
		if err := g.AddEdge(flow.Edge{Source: e.source, Target: e.target, Branch: branch, Label: label}); err != nil {
			return nil, &ParseError{
				Line:     e.line,
				Fragment: fmt.Sprintf("%s -> %s", e.source, e.target),
				Reason:   err.Error(),
			}
		}
	}
	return g, nil
}

// inferBranch maps an edge label onto a branch given the source node kind.
// Gateways take Oui/Non labels (an unlabeled gateway edge fills the first
// free branch); every other node emits sequential flow. Labels that differ
// from the branch default are kept as overrides.
func inferBranch(g *flow.Graph, src *flow.Node, label string) (flow.Branch, string) {
	if src.Kind != flow.KindGateway {
		return flow.BranchSequential, label
	}

	taken := map[flow.Branch]bool{}
	for _, e := range g.Outgoing(src.ID) {
		taken[e.Branch] = true
	}
	var branch flow.Branch
	switch label {
	case "Oui":
		branch = flow.BranchYes
	case "Non":
		branch = flow.BranchNo
	default:
		branch = flow.BranchYes
		if taken[flow.BranchYes] {
			branch = flow.BranchNo
		}
	}
	if label == branch.DefaultLabel() {
		label = ""
	}
	return branch, label
}

func shapeKind(shape string) flow.Kind {
	switch shape {
	case "circle":
		return flow.KindStart
	case "doublecircle":
		return flow.KindEnd
	case "diamond":
		return flow.KindGateway
	default:
		return flow.KindTask
	}
}

// splitAttrBlock separates `body [k=v, ...]` into body and parsed attrs.
func splitAttrBlock(stmt string, lineNo int) (string, map[string]string, error) {
	open := indexOutsideQuotes(stmt, '[')
	if open < 0 {
		return stmt, nil, nil
	}
	rest := stmt[open+1:]
	closeIdx := indexOutsideQuotes(rest, ']')
	if closeIdx < 0 {
		return "", nil, &ParseError{Line: lineNo, Fragment: stmt, Reason: "unterminated attribute list"}
	}
	if tail := strings.TrimSpace(rest[closeIdx+1:]); tail != "" {
		return "", nil, &ParseError{Line: lineNo, Fragment: stmt, Reason: "trailing content after attribute list"}
	}

	attrs := map[string]string{}
	for _, pair := range splitOutsideQuotes(rest[:closeIdx], ',') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		eq := indexOutsideQuotes(pair, '=')
		if eq < 0 {
			return "", nil, &ParseError{Line: lineNo, Fragment: pair, Reason: "attribute without value"}
		}
		key := strings.TrimSpace(pair[:eq])
		val := strings.TrimSpace(pair[eq+1:])
		if strings.HasPrefix(val, `"`) {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return "", nil, &ParseError{Line: lineNo, Fragment: pair, Reason: "malformed quoted value"}
			}
			val = unquoted
		}
		attrs[key] = val
	}
	return stmt[:open], attrs, nil
}

// splitArrow splits an edge chain on -> arrows outside quotes. A missing
// endpoint (e.g. `"a" ->`) is an unterminated edge statement.
func splitArrow(body string, lineNo int, stmt string) ([]string, error) {
	var parts []string
	start := 0
	inQuote := false
	for i := 0; i < len(body); i++ {
		switch {
		case body[i] == '"' && (i == 0 || body[i-1] != '\\'):
			inQuote = !inQuote
		case !inQuote && body[i] == '-' && i+1 < len(body) && body[i+1] == '>':
			parts = append(parts, body[start:i])
			start = i + 2
			i++
		}
	}
	parts = append(parts, body[start:])

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			if len(parts) == 1 {
				return nil, &ParseError{Line: lineNo, Fragment: stmt, Reason: "empty statement"}
			}
			return nil, &ParseError{Line: lineNo, Fragment: stmt, Reason: "unterminated edge statement"}
		}
	}
	return parts, nil
}

func unquoteID(tok string, lineNo int, stmt string) (string, error) {
	if strings.HasPrefix(tok, `"`) {
		id, err := strconv.Unquote(tok)
		if err != nil || id == "" {
			return "", &ParseError{Line: lineNo, Fragment: stmt, Reason: "malformed quoted identifier"}
		}
		return id, nil
	}
	if strings.ContainsAny(tok, " \t") {
		return "", &ParseError{Line: lineNo, Fragment: stmt, Reason: "identifier contains whitespace"}
	}
	return tok, nil
}

func indexOutsideQuotes(s string, c byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"' && (i == 0 || s[i-1] != '\\'):
			inQuote = !inQuote
		case !inQuote && s[i] == c:
			return i
		}
	}
	return -1
}

func splitOutsideQuotes(s string, c byte) []string {
	var parts []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"' && (i == 0 || s[i-1] != '\\'):
			inQuote = !inQuote
		case !inQuote && s[i] == c:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func copyInto(dst, src map[string]string) map[string]string {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
