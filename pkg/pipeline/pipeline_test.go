package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/procflow/procflow/pkg/cache"
	"github.com/procflow/procflow/pkg/table"
	"github.com/procflow/procflow/pkg/visual"
)

func testRows() []table.Row {
	return []table.Row{
		table.Sequential("1.1", "Accueil", "Recevoir la demande", "1.2"),
		table.Conditional("1.2", "Contrôle", "Vérifier le dossier", "Dossier complet ?", "1.3", "1.1"),
		table.Sequential("1.3", "Instruction", "Instruire la demande", ""),
	}
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, log.New(io.Discard))
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "missing rows",
			opts:    Options{},
			wantErr: true,
		},
		{
			name:    "invalid format",
			opts:    Options{Rows: testRows(), Formats: []string{"png"}},
			wantErr: true,
		},
		{
			name: "defaults applied",
			opts: Options{Rows: testRows()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if tt.opts.CanvasWidth != DefaultCanvasWidth {
					t.Errorf("canvas width = %v, want default", tt.opts.CanvasWidth)
				}
				if len(tt.opts.Formats) == 0 {
					t.Error("formats default not applied")
				}
			}
		})
	}
}

func TestOptionsValidationIdempotent(t *testing.T) {
	opts := Options{Rows: testRows(), CanvasWidth: 900}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.CanvasWidth != 900 {
		t.Errorf("second validation changed width to %v", opts.CanvasWidth)
	}
}

func TestExecuteGeneratesAllFormats(t *testing.T) {
	r := testRunner(t)
	defer r.Close()

	res, err := r.Execute(context.Background(), Options{
		Rows:    testRows(),
		Formats: []string{FormatDOT, FormatMermaid, FormatBPMN, FormatVisual},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Stats.NodeCount != 5 {
		t.Errorf("node count = %d, want 5", res.Stats.NodeCount)
	}
	if res.GraphHash == "" {
		t.Error("graph hash empty")
	}
	if !strings.HasPrefix(string(res.Artifacts[FormatDOT]), "digraph process {") {
		t.Error("dot artifact malformed")
	}
	if !strings.HasPrefix(string(res.Artifacts[FormatMermaid]), "graph TD") {
		t.Error("mermaid artifact malformed")
	}
	if !strings.Contains(string(res.Artifacts[FormatBPMN]), "<Process") {
		t.Error("bpmn artifact malformed")
	}

	var m visual.Model
	if err := json.Unmarshal(res.Artifacts[FormatVisual], &m); err != nil {
		t.Fatalf("visual artifact not JSON: %v", err)
	}
	if len(m.Nodes) != 5 {
		t.Errorf("visual nodes = %d, want 5", len(m.Nodes))
	}
}

func TestExecuteCachesLayoutAndArtifacts(t *testing.T) {
	r := testRunner(t)
	defer r.Close()
	ctx := context.Background()
	opts := Options{Rows: testRows(), Formats: []string{FormatDOT, FormatMermaid}}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.ArtifactHit {
		t.Error("first run reported cache hits")
	}

	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("second run missed layout cache")
	}
	if !second.CacheInfo.ArtifactHit {
		t.Error("second run missed artifact cache")
	}
	if string(first.Artifacts[FormatDOT]) != string(second.Artifacts[FormatDOT]) {
		t.Error("cached artifact differs from computed one")
	}

	// Positions must survive the cache round trip.
	for _, n := range second.Graph.Nodes() {
		if !n.Placed {
			t.Errorf("node %s not placed after cache hit", n.ID)
		}
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	r := testRunner(t)
	defer r.Close()
	ctx := context.Background()

	if _, err := r.Execute(ctx, Options{Rows: testRows()}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, Options{Rows: testRows(), Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.ArtifactHit {
		t.Error("refresh run reported cache hits")
	}
}

func TestExecuteDifferentGeometryMissesCache(t *testing.T) {
	r := testRunner(t)
	defer r.Close()
	ctx := context.Background()

	if _, err := r.Execute(ctx, Options{Rows: testRows()}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, Options{Rows: testRows(), CanvasWidth: 1600})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit {
		t.Error("layout cache hit despite different geometry")
	}
}
