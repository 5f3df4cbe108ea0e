package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/procflow/procflow/pkg/pipeline"
	"github.com/procflow/procflow/pkg/table"
)

func writeSampleTable(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "process.json")
	rows := []table.Row{
		table.Sequential("1.1", "Agent", "Réception de la demande", "1.2"),
		table.Conditional("1.2", "Agent", "Vérifier le dossier", "Dossier complet ?", "1.3", "1.1"),
		table.Sequential("1.3", "Responsable", "Valider la demande", ""),
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := table.WriteJSON(rows, f); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCompileWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	input := writeSampleTable(t, dir)

	c := New(io.Discard, LogInfo)
	opts := pipeline.Options{Formats: []string{pipeline.FormatDOT, pipeline.FormatMermaid}}
	if err := c.runCompile(context.Background(), input, opts, "", false); err != nil {
		t.Fatalf("runCompile: %v", err)
	}

	dot, err := os.ReadFile(filepath.Join(dir, "process_dot.dot"))
	if err != nil {
		t.Fatalf("notation artifact missing: %v", err)
	}
	if !strings.Contains(string(dot), "digraph") {
		t.Errorf("notation artifact = %q", dot)
	}
	mmd, err := os.ReadFile(filepath.Join(dir, "process_mermaid.mermaid"))
	if err != nil {
		t.Fatalf("flowchart artifact missing: %v", err)
	}
	if !strings.Contains(string(mmd), "graph TD") {
		t.Errorf("flowchart artifact = %q", mmd)
	}
}

func TestRunCompileSingleFormatKeepsBaseName(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	input := writeSampleTable(t, dir)

	c := New(io.Discard, LogInfo)
	opts := pipeline.Options{Formats: []string{pipeline.FormatDOT}}
	if err := c.runCompile(context.Background(), input, opts, "", true); err != nil {
		t.Fatalf("runCompile: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "process.dot")); err != nil {
		t.Errorf("expected process.dot: %v", err)
	}
}

func TestRunParseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	input := writeSampleTable(t, dir)

	c := New(io.Discard, LogInfo)
	opts := pipeline.Options{Formats: []string{pipeline.FormatDOT}}
	if err := c.runCompile(context.Background(), input, opts, "", true); err != nil {
		t.Fatalf("runCompile: %v", err)
	}

	rowsOut := filepath.Join(dir, "parsed.json")
	if err := c.runParse(context.Background(), filepath.Join(dir, "process.dot"), rowsOut); err != nil {
		t.Fatalf("runParse: %v", err)
	}

	rows, err := loadRows(rowsOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1].Type != table.RowConditional || rows[1].Condition != "Dossier complet ?" {
		t.Errorf("conditional row lost: %+v", rows[1])
	}
}

func TestRunParseMalformedInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.dot")
	if err := os.WriteFile(path, []byte(`"a" -> "b"`), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	if err := c.runParse(context.Background(), path, ""); err == nil {
		t.Error("expected parse error")
	}
}
