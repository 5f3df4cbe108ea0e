// Package pkg provides the core libraries for procflow process compilation.
//
// # Overview
//
// Procflow turns flat step tables into business-process flowcharts. The pkg
// directory is organized into four main areas:
//
//  1. [table], [flow] - Domain model (step rows, process graph, repair, layout)
//  2. [dot], [mermaid], [bpmn], [visual] - Generators and the reverse parser
//  3. [cache], [store], [httputil], [collab] - Infrastructure and collaborator clients
//  4. [pipeline], [editor] - Orchestration and the live sync coordinator
//
// # Architecture
//
// The typical data flow through procflow:
//
//	Step table (JSON/CSV rows)
//	         ↓
//	    [flow/build] package (validate and repair into a graph)
//	         ↓
//	    [flow/layout] package (layered placement)
//	         ↓
//	    [dot] / [mermaid] / [bpmn] / [visual] packages
//	         ↓
//	    notation text / flowchart markup / XML / node-edge JSON / SVG
//
// The [dot] package also parses notation text back into a graph, which is
// what keeps the text editor bidirectional. The [editor] package coordinates
// simultaneous edits across representations.
package pkg
