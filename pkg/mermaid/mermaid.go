// Package mermaid generates Mermaid flowchart definitions from process
// graphs, suitable for embedding in documentation and chat tools that
// render Mermaid blocks natively.
package mermaid

import (
	"fmt"
	"strings"

	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/style"
)

// Generate renders the graph as a top-down Mermaid flowchart. Nodes keep
// their insertion order so repeated generation yields identical text.
func Generate(g *flow.Graph) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	for _, n := range g.Nodes() {
		b.WriteString(fmt.Sprintf("    %s\n", nodeDef(n)))
	}

	for _, e := range g.Edges() {
		label := ""
		if l := e.DisplayLabel(); l != "" {
			label = fmt.Sprintf("|%s|", escapeLabel(l))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			safeID(e.Source), label, safeID(e.Target)))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("    classDef terminal fill:%s,color:#fff\n", style.TerminalColor))

	colors := style.ActorColors(g)
	classes := actorClasses(g, colors)
	for _, c := range classes {
		b.WriteString(fmt.Sprintf("    classDef %s fill:%s,color:#fff\n", c.name, c.color))
	}

	for _, n := range g.Nodes() {
		cls := "terminal"
		if n.Actor != "" {
			cls = className(n.Actor)
		}
		b.WriteString(fmt.Sprintf("    class %s %s\n", safeID(n.ID), cls))
	}

	return b.String()
}

// nodeDef returns a node definition with the shape for its kind: circles
// for start markers, stadiums for end markers, diamonds for gateways and
// rectangles for tasks.
func nodeDef(n *flow.Node) string {
	id := safeID(n.ID)
	label := escapeLabel(n.DisplayLabel())

	switch n.Kind {
	case flow.KindStart:
		return fmt.Sprintf("%s((%q))", id, label)
	case flow.KindEnd:
		return fmt.Sprintf("%s([%q])", id, label)
	case flow.KindGateway:
		return fmt.Sprintf("%s{%q}", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

type actorClass struct {
	name  string
	color string
}

// actorClasses lists one class per actor in first-appearance order.
func actorClasses(g *flow.Graph, colors map[string]string) []actorClass {
	var classes []actorClass
	seen := map[string]bool{}
	for _, n := range g.Nodes() {
		if n.Actor == "" || seen[n.Actor] {
			continue
		}
		seen[n.Actor] = true
		classes = append(classes, actorClass{name: className(n.Actor), color: colors[n.Actor]})
	}
	return classes
}

// safeID converts a step ID to a Mermaid-safe identifier. Step IDs like
// "1.2" would otherwise be read as Mermaid syntax.
func safeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return "n" + r.Replace(id)
}

func className(actor string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return "actor_" + r.Replace(actor)
}

// escapeLabel strips characters that terminate a Mermaid label early.
func escapeLabel(s string) string {
	r := strings.NewReplacer("\"", "#quot;", "\n", " ")
	return r.Replace(s)
}
