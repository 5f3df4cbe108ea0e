// Package pipeline runs the staged compile path used by the CLI and the
// API server: build rows into a graph, lay it out, then generate the
// requested artifact formats. Layout and generation results are cached
// content-addressed, so recompiling an unchanged process is free.
//
// The interactive editor does not go through this package; it rebuilds
// synchronously via pkg/editor. The pipeline serves the batch surfaces
// where the same process is compiled repeatedly.
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/procflow/procflow/pkg/cache"
	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/flow/build"
	"github.com/procflow/procflow/pkg/flow/layout"
	"github.com/procflow/procflow/pkg/table"
)

// Output formats.
const (
	FormatDOT     = "dot"
	FormatMermaid = "mermaid"
	FormatBPMN    = "bpmn"
	FormatSVG     = "svg"
	FormatVisual  = "visual"
)

// ValidFormats lists the formats Generate understands.
var ValidFormats = map[string]bool{
	FormatDOT:     true,
	FormatMermaid: true,
	FormatBPMN:    true,
	FormatSVG:     true,
	FormatVisual:  true,
}

// Layout defaults mirror pkg/flow/layout.
const (
	DefaultCanvasWidth = 800.0
	DefaultVerticalGap = 120.0
	DefaultTopMargin   = 40.0
)

// Cache TTLs per stage. Layouts are cheap to recompute, artifacts less so
// when SVG rendering is involved.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Rows is the process table to compile.
	Rows []table.Row `json:"rows"`

	// Layout options. Zero values take defaults.
	CanvasWidth float64 `json:"canvas_width,omitempty"`
	VerticalGap float64 `json:"vertical_gap,omitempty"`
	TopMargin   float64 `json:"top_margin,omitempty"`

	// Formats selects the artifacts to generate. Empty means dot only.
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses cache reads (results are still written back).
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Rows) == 0 {
		return errors.New(errors.ErrCodeEmptyInput, "rows are required")
	}
	o.SetLayoutDefaults()
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDOT}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.CanvasWidth == 0 {
		o.CanvasWidth = DefaultCanvasWidth
	}
	if o.VerticalGap == 0 {
		o.VerticalGap = DefaultVerticalGap
	}
	if o.TopMargin == 0 {
		o.TopMargin = DefaultTopMargin
	}
}

// LayoutOptions converts the pipeline options into layout engine options.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		CanvasWidth: o.CanvasWidth,
		VerticalGap: o.VerticalGap,
		TopMargin:   o.TopMargin,
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		CanvasWidth: o.CanvasWidth,
		VerticalGap: o.VerticalGap,
		TopMargin:   o.TopMargin,
	}
}

// ArtifactKeyOpts returns cache key options for artifact generation.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format}
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, mermaid, bpmn, svg, visual)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the built, laid-out process graph.
	Graph *flow.Graph

	// GraphHash is the content hash of the built graph.
	GraphHash string

	// Warnings collects the builder's repair warnings.
	Warnings []build.Warning

	// Artifacts contains generated outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	BuildTime    time.Duration
	LayoutTime   time.Duration
	GenerateTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit   bool // Whether layout positions came from cache
	ArtifactHit bool // Whether all artifacts came from cache
}
