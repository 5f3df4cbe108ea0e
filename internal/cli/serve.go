package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/procflow/procflow/internal/api"
	"github.com/procflow/procflow/pkg/cache"
	"github.com/procflow/procflow/pkg/collab"
	"github.com/procflow/procflow/pkg/config"
	"github.com/procflow/procflow/pkg/pipeline"
	"github.com/procflow/procflow/pkg/store"
)

// shutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

The server exposes the compile pipeline, the notation parser, saved
processes and the collaborator proxies. Cache and store backends come
from the config file; --addr overrides the configured listen address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), configPath, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	artifactCache, err := c.configuredCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	st, err := c.configuredStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close(context.Background())

	var collabClient *collab.Client
	if cfg.Collab.AnalyzeURL != "" || cfg.Collab.EnrichURL != "" {
		collabClient, err = collab.NewClient(cfg.Collab.AnalyzeURL, cfg.Collab.EnrichURL)
		if err != nil {
			return err
		}
	}

	runner := pipeline.NewRunner(artifactCache, nil, c.Logger)
	defer runner.Close()

	server := &api.Server{
		Runner: runner,
		Store:  st,
		Collab: collabClient,
		Logger: c.Logger,
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(server),
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// configuredCache builds the cache backend selected in the config file.
func (c *CLI) configuredCache(ctx context.Context, cfg config.CacheCfg) (cache.Cache, error) {
	switch cfg.Backend {
	case "null":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Addr, cfg.Password, cfg.DB)
	default:
		dir := cfg.Dir
		if dir == "" {
			var err error
			dir, err = cacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	}
}

// configuredStore builds the process store selected in the config file.
func (c *CLI) configuredStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	if cfg.Backend == "mongo" {
		return store.NewMongoStore(ctx, cfg.URI, cfg.Database)
	}
	return store.NewMemoryStore(), nil
}
