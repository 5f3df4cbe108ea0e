package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/procflow/procflow/pkg/bpmn"
	"github.com/procflow/procflow/pkg/cache"
	"github.com/procflow/procflow/pkg/dot"
	"github.com/procflow/procflow/pkg/flow"
	"github.com/procflow/procflow/pkg/flow/build"
	"github.com/procflow/procflow/pkg/flow/layout"
	"github.com/procflow/procflow/pkg/mermaid"
	"github.com/procflow/procflow/pkg/observability"
	"github.com/procflow/procflow/pkg/visual"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → layout → generate pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Build. Always recomputed - building is pure and cheap,
	// and rows are the source of truth.
	buildStart := time.Now()
	observability.Pipeline().OnBuildStart(ctx, len(opts.Rows))
	g, warnings, err := build.FromRows(opts.Rows)
	observability.Pipeline().OnBuildComplete(ctx, nodeCountOrZero(g), time.Since(buildStart), err)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Warnings = warnings
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.GraphHash = cache.Hash([]byte(dot.Generate(g)))

	logger.Info("built graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"warnings", len(warnings),
		"duration", result.Stats.BuildTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, g.NodeCount())
	placed, layoutHit, err := r.layoutWithCacheInfo(ctx, g, result.GraphHash, opts)
	observability.Pipeline().OnLayoutComplete(ctx, time.Since(layoutStart), err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Graph = placed
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	logger.Info("computed layout",
		"cache_hit", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Generate
	genStart := time.Now()
	observability.Pipeline().OnGenerateStart(ctx, opts.Formats)
	artifacts, artifactHit, err := r.generateWithCacheInfo(ctx, placed, result.GraphHash, opts)
	observability.Pipeline().OnGenerateComplete(ctx, opts.Formats, time.Since(genStart), err)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.GenerateTime = time.Since(genStart)
	result.CacheInfo.ArtifactHit = artifactHit

	logger.Info("generated artifacts",
		"formats", opts.Formats,
		"cache_hit", artifactHit,
		"duration", result.Stats.GenerateTime)

	return result, nil
}

// placement is the cached layout payload: per-node coordinates keyed by
// node ID.
type placement struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Level       int     `json:"level"`
	Unreachable bool    `json:"unreachable,omitempty"`
}

func (r *Runner) layoutWithCacheInfo(ctx context.Context, g *flow.Graph, graphHash string, opts Options) (*flow.Graph, bool, error) {
	cacheKey := r.Keyer.LayoutKey(graphHash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if placed, err := applyPlacements(g, data); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return placed, true, nil
			}
			// Corrupt entry: fall through to recompute
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	placed := layout.Apply(g, opts.LayoutOptions())

	positions := make(map[string]placement, placed.NodeCount())
	for _, n := range placed.Nodes() {
		positions[n.ID] = placement{X: n.X, Y: n.Y, Level: n.Level, Unreachable: n.Unreachable}
	}
	if data, err := json.Marshal(positions); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, TTLLayout)
		observability.Cache().OnCacheSet(ctx, "layout", len(data))
	}

	return placed, false, nil
}

// applyPlacements replays cached coordinates onto a clone of g. Every node
// must be covered, otherwise the entry belongs to a different graph.
func applyPlacements(g *flow.Graph, data []byte) (*flow.Graph, error) {
	var positions map[string]placement
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, err
	}

	placed := g.Clone()
	for _, n := range placed.Nodes() {
		p, ok := positions[n.ID]
		if !ok {
			return nil, fmt.Errorf("cached layout missing node %s", n.ID)
		}
		n.X, n.Y, n.Level, n.Unreachable = p.X, p.Y, p.Level, p.Unreachable
		n.Placed = true
	}
	return placed, nil
}

func (r *Runner) generateWithCacheInfo(ctx context.Context, g *flow.Graph, graphHash string, opts Options) (map[string][]byte, bool, error) {
	layoutHash := cache.Hash([]byte(graphHash + fmt.Sprintf("/%v", opts.LayoutKeyOpts())))

	artifacts := make(map[string][]byte)
	if !opts.Refresh {
		allCached := true
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered, err := r.generate(ctx, g, opts.Formats)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	return rendered, false, nil
}

func (r *Runner) generate(ctx context.Context, g *flow.Graph, formats []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(formats))
	for _, format := range formats {
		switch format {
		case FormatDOT:
			out[format] = []byte(dot.Generate(g))
		case FormatMermaid:
			out[format] = []byte(mermaid.Generate(g))
		case FormatBPMN:
			xml, err := bpmn.Generate(g)
			if err != nil {
				return nil, err
			}
			out[format] = []byte(xml)
		case FormatSVG:
			svg, err := dot.RenderSVG(ctx, g)
			if err != nil {
				return nil, err
			}
			out[format] = svg
		case FormatVisual:
			data, err := json.Marshal(visual.FromGraph(g))
			if err != nil {
				return nil, err
			}
			out[format] = data
		default:
			return nil, fmt.Errorf("invalid format: %q", format)
		}
	}
	return out, nil
}

func nodeCountOrZero(g *flow.Graph) int {
	if g == nil {
		return 0
	}
	return g.NodeCount()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
