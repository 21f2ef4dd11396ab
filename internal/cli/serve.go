package cli

import (
	"context"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipewright/internal/server"
	"github.com/matzehuels/pipewright/pkg/cache"
	"github.com/matzehuels/pipewright/pkg/config"
	"github.com/matzehuels/pipewright/pkg/observability"
)

type serveOpts struct {
	addr     string
	redisURL string
	cacheDir string
	metrics  bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline validation service",
		Long: `Run the HTTP service that answers POST /pipelines/parse with the node
count, edge count and DAG status of a submitted pipeline.

Results are cached by document hash in Redis (--redis) or on disk
(--cache-dir). Allowed browser origins come from the config file and
FRONTEND_ORIGIN.`,
		Example: `  pipewright serve
  pipewright serve --addr :9000 --redis redis://localhost:6379/0
  FRONTEND_ORIGIN=https://editor.example.com pipewright serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &cfg, opts)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg, opts.metrics)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for the result cache")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "directory for the on-disk result cache")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", true, "expose Prometheus metrics on "+server.MetricsPath)

	return cmd
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config, opts serveOpts) {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if cmd.Flags().Changed("redis") {
		cfg.Server.RedisURL = opts.redisURL
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.Server.CacheDir = opts.cacheDir
	}
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config, withMetrics bool) error {
	logger := loggerFromContext(ctx)

	store, err := openCache(ctx, cfg.Server)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []server.Option{
		server.WithOrigins(cfg.Server.Origins...),
		server.WithCache(store, cfg.Server.CacheTTL.Std()),
		server.WithLogger(logger),
	}
	if withMetrics {
		m := server.NewMetrics(appName)
		observability.SetValidationHooks(m)
		observability.SetCacheHooks(m)
		defer observability.Reset()
		opts = append(opts, server.WithMetrics(m))
	}

	return server.New(opts...).ListenAndServe(ctx, cfg.Server.Addr)
}

// openCache picks the result cache: Redis, then a directory, then none.
func openCache(ctx context.Context, sc config.ServerConfig) (cache.Cache, error) {
	logger := loggerFromContext(ctx)
	switch {
	case sc.RedisURL != "":
		logger.Info("using redis cache", "url", redactURL(sc.RedisURL))
		return cache.NewRedisCache(ctx, sc.RedisURL, cache.WithRedisLogger(logger))
	case sc.CacheDir != "":
		logger.Info("using file cache", "dir", sc.CacheDir)
		return cache.NewFileCache(sc.CacheDir)
	default:
		logger.Debug("result cache disabled")
		return cache.NewNullCache(), nil
	}
}

// redactURL hides the password of a connection URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid)"
	}
	return u.Redacted()
}
