// Package cache provides content-addressed caching for the compile
// pipeline: layout results and generated artifacts are keyed by a hash of
// their inputs, so an unchanged process never re-renders. Backends cover
// local CLI usage (files), server deployments (Redis) and tests (null).
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads with optional expiry.
//
// Get returns (nil, false, nil) on a miss; an error only signals backend
// failure. A ttl of 0 in Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// LayoutKeyOpts carries the layout parameters that affect coordinates.
type LayoutKeyOpts struct {
	CanvasWidth float64
	VerticalGap float64
	TopMargin   float64
}

// ArtifactKeyOpts carries the generation parameters that affect output.
type ArtifactKeyOpts struct {
	Format string
}

// Keyer derives cache keys for pipeline stages. Implementations must be
// deterministic: equal inputs yield equal keys.
type Keyer interface {
	// LayoutKey keys a layout computation by the graph content hash and
	// the layout options.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys a generated artifact by the laid-out graph hash
	// and the output format.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes inputs into stable prefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key of the form layout:<sha256>.
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ArtifactKey generates a key of the form artifact:<sha256>.
func (k *DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
