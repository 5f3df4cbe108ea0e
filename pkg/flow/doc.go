// Package flow provides the canonical in-memory process graph that every
// other representation is compiled from and to.
//
// # Overview
//
// Procflow describes a business process as a flat table of steps and keeps
// four derived representations of it in sync: DOT graph-description text,
// Mermaid flowchart markup, BPMN interchange XML, and the visual node/edge
// model of the editor. All of them are projections of a single [Graph].
//
// A Graph holds [Node] values (start, end, task, gateway) connected by
// directed [Edge] values carrying a [Branch] (sequential flow or the yes/no
// arms of a gateway). Nodes iterate in insertion order so that every
// generator produces deterministic output for a given build.
//
// # Basic Usage
//
// Create a graph with [New], add nodes with [Graph.AddNode] and edges with
// [Graph.AddEdge]:
//
//	g := flow.New(nil)
//	g.AddNode(flow.Node{ID: "1.1", Kind: flow.KindTask, Label: "Receive file"})
//	g.AddNode(flow.Node{ID: "1.2", Kind: flow.KindGateway, Condition: "Complete?"})
//	g.AddEdge(flow.Edge{Source: "1.1", Target: "1.2"})
//	g.AddEdge(flow.Edge{Source: "1.2", Target: "1.1", Branch: flow.BranchNo})
//
// Use [Graph.Validate] to check the process invariants (unique IDs, one
// start, terminal coverage, branch discipline) and [Equal] to compare two
// graphs structurally.
//
// # Lifecycle
//
// A Graph is rebuilt from scratch on every edit cycle by the builder
// (package flow/build) or the text parser (package dot), laid out by
// package flow/layout, serialized by the generators, and then discarded.
// Nothing mutates a shared long-lived instance, so the type carries no
// locking.
package flow
