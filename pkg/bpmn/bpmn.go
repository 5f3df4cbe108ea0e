// Package bpmn serializes process graphs to BPMN 2.0 process-interchange
// XML. The output targets interchange with external modeling tools, so
// element ids are stable across rebuilds: they derive from the step
// number when the table provided one, from the node id otherwise.
package bpmn

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/flow"
)

// Namespace is the BPMN 2.0 model namespace carried on the root element.
const Namespace = "http://www.omg.org/spec/BPMN/20100524/MODEL"

type definitions struct {
	XMLName xml.Name `xml:"Definitions"`
	Xmlns   string   `xml:"xmlns,attr"`
	ID      string   `xml:"id,attr"`
	Process process  `xml:"Process"`
}

type process struct {
	ID           string        `xml:"id,attr"`
	IsExecutable bool          `xml:"isExecutable,attr"`
	StartEvents  []event       `xml:"StartEvent"`
	Tasks        []task        `xml:"Task"`
	Gateways     []gateway     `xml:"ExclusiveGateway"`
	EndEvents    []event       `xml:"EndEvent"`
	Flows        []sequenceFlow `xml:"SequenceFlow"`
}

type event struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr,omitempty"`
}

type task struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Actor string `xml:"actor,attr,omitempty"`
}

type gateway struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type sequenceFlow struct {
	ID        string `xml:"id,attr"`
	SourceRef string `xml:"sourceRef,attr"`
	TargetRef string `xml:"targetRef,attr"`
	Name      string `xml:"name,attr,omitempty"`
}

// Generate serializes the graph to process-interchange XML. A graph that
// violates the process invariants (say, no start node) still produces
// well-formed XML; semantic completeness is the builder's job, not the
// generator's.
func Generate(g *flow.Graph) (string, error) {
	ids := map[string]string{}
	p := process{ID: "Process_1", IsExecutable: false}

	for _, n := range g.Nodes() {
		id := elementID(n)
		ids[n.ID] = id
		switch n.Kind {
		case flow.KindStart:
			p.StartEvents = append(p.StartEvents, event{ID: id, Name: n.Label})
		case flow.KindEnd:
			p.EndEvents = append(p.EndEvents, event{ID: id, Name: n.Label})
		case flow.KindGateway:
			p.Gateways = append(p.Gateways, gateway{ID: id, Name: n.Condition})
		default:
			p.Tasks = append(p.Tasks, task{ID: id, Name: n.Label, Actor: n.Actor})
		}
	}

	for i, e := range g.Edges() {
		src, ok := ids[e.Source]
		if !ok {
			return "", errors.New(errors.ErrCodeGeneration, "edge source %q has no element", e.Source)
		}
		dst, ok := ids[e.Target]
		if !ok {
			return "", errors.New(errors.ErrCodeGeneration, "edge target %q has no element", e.Target)
		}
		p.Flows = append(p.Flows, sequenceFlow{
			ID:        fmt.Sprintf("Flow_%d", i+1),
			SourceRef: src,
			TargetRef: dst,
			Name:      e.DisplayLabel(),
		})
	}

	doc := definitions{Xmlns: Namespace, ID: "Definitions_1", Process: p}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeGeneration, err, "marshal process XML")
	}
	return xml.Header + string(out) + "\n", nil
}

// elementID derives the stable interchange id for a node. Step numbers
// from the source table win over node ids so renaming a step in the
// editor does not churn ids downstream.
func elementID(n *flow.Node) string {
	ref := n.Attrs["step"]
	if ref == "" {
		ref = n.ID
	}
	ref = sanitizeRef(ref)

	switch n.Kind {
	case flow.KindStart:
		return "StartEvent_" + ref
	case flow.KindEnd:
		return "EndEvent_" + ref
	case flow.KindGateway:
		return "Gateway_" + ref
	default:
		return "Task_" + ref
	}
}

// sanitizeRef keeps ids valid XML NCNames. Step ids like "1.2" carry
// dots; spaces show up when a node was declared from free text.
func sanitizeRef(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
