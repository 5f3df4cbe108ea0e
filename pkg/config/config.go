// Package config loads procflow configuration from a TOML file, covering
// canvas geometry, collaborator endpoints, caching and storage. Every
// field has a default so a missing file yields a working configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/procflow/procflow/pkg/errors"
)

// Duration wraps time.Duration so TOML values like "24h" decode.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultPath returns the conventional config location,
// ~/.config/procflow/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "procflow", "config.toml")
}

// Config is the full procflow configuration.
type Config struct {
	Canvas Canvas   `toml:"canvas"`
	Collab Collab   `toml:"collaborators"`
	Cache  CacheCfg `toml:"cache"`
	Store  Store    `toml:"store"`
	Server Server   `toml:"server"`
}

// Canvas controls layout geometry.
type Canvas struct {
	Width       float64 `toml:"width"`
	VerticalGap float64 `toml:"vertical_gap"`
	TopMargin   float64 `toml:"top_margin"`
}

// Collab holds collaborator endpoint URLs. Empty URLs disable the
// corresponding feature.
type Collab struct {
	AnalyzeURL string `toml:"analyze_url"`
	EnrichURL  string `toml:"enrich_url"`
}

// CacheCfg selects and configures the cache backend.
type CacheCfg struct {
	// Backend is one of "file", "redis" or "null".
	Backend string `toml:"backend"`
	// Dir is the file backend's directory. Empty means
	// ~/.cache/procflow.
	Dir string `toml:"dir"`
	// Addr is the redis backend's host:port.
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	TTL      Duration `toml:"ttl"`
}

// Store configures saved-process persistence.
type Store struct {
	// Backend is "memory" or "mongo".
	Backend  string `toml:"backend"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Canvas: Canvas{Width: 800, VerticalGap: 120, TopMargin: 40},
		Cache:  CacheCfg{Backend: "file", TTL: Duration{24 * time.Hour}},
		Store:  Store{Backend: "memory", Database: "procflow"},
		Server: Server{Addr: ":8080"},
	}
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error; a malformed one is. The environment
// variables PROCFLOW_ANALYZE_URL and PROCFLOW_ENRICH_URL override the
// collaborator endpoints from the file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
		}
	} else if !os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	if v := os.Getenv("PROCFLOW_ANALYZE_URL"); v != "" {
		cfg.Collab.AnalyzeURL = v
	}
	if v := os.Getenv("PROCFLOW_ENRICH_URL"); v != "" {
		cfg.Collab.EnrichURL = v
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Canvas.Width <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas width must be positive")
	}
	switch c.Cache.Backend {
	case "file", "redis", "null":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case "memory", "mongo":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", c.Store.Backend)
	}
	if c.Collab.AnalyzeURL != "" {
		if err := errors.ValidateEndpointURL(c.Collab.AnalyzeURL); err != nil {
			return err
		}
	}
	if c.Collab.EnrichURL != "" {
		if err := errors.ValidateEndpointURL(c.Collab.EnrichURL); err != nil {
			return err
		}
	}
	return nil
}
