package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackflow/pkg/cache"
	"github.com/matzehuels/stackflow/pkg/observability"
	"github.com/matzehuels/stackflow/pkg/pipeline"
	"github.com/matzehuels/stackflow/pkg/server"
	"github.com/matzehuels/stackflow/pkg/store"
)

const (
	// apiKeyPrefix scopes the service's cache keys away from CLI entries.
	apiKeyPrefix = "api:"

	// shutdownTimeout bounds how long in-flight requests may finish.
	shutdownTimeout = 10 * time.Second
)

// serveFlags holds the command-line flags of the serve command.
type serveFlags struct {
	addr      string
	redisURL  string
	mongoURI  string
	mongoDB   string
	storeDir  string
	rateLimit float64
	burst     int
	maxBody   int64
}

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP service",
		Long: `Run the layout HTTP service.

Layouts are cached in Redis when --redis-url is set and computed on every
request otherwise. Stored layouts live in MongoDB (--mongo-uri), in a
directory (--store-dir) or in memory.

Endpoints:
  POST   /v1/layout         lay out a flowchart
  POST   /v1/layouts        lay out and store a flowchart
  GET    /v1/layouts        list stored layouts
  GET    /v1/layouts/{id}   fetch a stored layout
  DELETE /v1/layouts/{id}   delete a stored layout
  GET    /v1/stats          request and pipeline counters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServerConfig(cmd, c.Config.Server, &flags)
			return c.runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&flags.redisURL, "redis-url", "", "Redis URL for the layout cache (e.g. redis://localhost:6379/0)")
	cmd.Flags().StringVar(&flags.mongoURI, "mongo-uri", "", "MongoDB URI for stored layouts")
	cmd.Flags().StringVar(&flags.mongoDB, "mongo-database", store.DefaultMongoDatabase, "MongoDB database name")
	cmd.Flags().StringVar(&flags.storeDir, "store-dir", "", "directory for stored layouts")
	cmd.Flags().Float64Var(&flags.rateLimit, "rate-limit", 0, "layout requests per second (0 disables)")
	cmd.Flags().IntVar(&flags.burst, "burst", 0, "rate limit burst (default: rate limit)")
	cmd.Flags().Int64Var(&flags.maxBody, "max-body-bytes", server.DefaultMaxBodyBytes, "maximum request body size")

	return cmd
}

// applyServerConfig fills serve flags from the config file wherever the
// flag was not set on the command line.
func applyServerConfig(cmd *cobra.Command, cfg ServerConfig, f *serveFlags) {
	unset := func(name string) bool { return !cmd.Flags().Changed(name) }
	if unset("addr") && cfg.Addr != "" {
		f.addr = cfg.Addr
	}
	if unset("redis-url") && cfg.RedisURL != "" {
		f.redisURL = cfg.RedisURL
	}
	if unset("mongo-uri") && cfg.MongoURI != "" {
		f.mongoURI = cfg.MongoURI
	}
	if unset("mongo-database") && cfg.MongoDatabase != "" {
		f.mongoDB = cfg.MongoDatabase
	}
	if unset("store-dir") && cfg.StoreDir != "" {
		f.storeDir = cfg.StoreDir
	}
	if unset("rate-limit") && cfg.RateLimit != 0 {
		f.rateLimit = cfg.RateLimit
	}
	if unset("burst") && cfg.Burst != 0 {
		f.burst = cfg.Burst
	}
	if unset("max-body-bytes") && cfg.MaxBodyBytes != 0 {
		f.maxBody = cfg.MaxBodyBytes
	}
}

func (c *CLI) runServe(ctx context.Context, flags serveFlags) error {
	layoutCache, err := c.serverCache(ctx, flags.redisURL)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(layoutCache, cache.NewScopedKeyer(nil, apiKeyPrefix), c.Logger)
	defer runner.Close()

	st, err := c.serverStore(ctx, flags)
	if err != nil {
		return err
	}
	defer st.Close()

	counters := observability.NewCounters()
	observability.SetPipelineHooks(counters)
	observability.SetCacheHooks(counters)
	observability.SetRequestHooks(counters)

	srv := server.New(runner, st, c.Logger, server.Config{
		Addr:         flags.addr,
		MaxBodyBytes: flags.maxBody,
		RateLimit:    flags.rateLimit,
		Burst:        flags.burst,
		Counters:     counters,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// serverCache connects to Redis, or returns a no-op cache without a URL.
func (c *CLI) serverCache(ctx context.Context, url string) (cache.Cache, error) {
	if url == "" {
		c.Logger.Info("layout cache disabled")
		return cache.NewNullCache(), nil
	}
	rc, err := cache.NewRedisCache(ctx, url)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("using redis layout cache")
	return rc, nil
}

// serverStore picks the layout store: MongoDB, then a directory, then memory.
func (c *CLI) serverStore(ctx context.Context, flags serveFlags) (store.Store, error) {
	switch {
	case flags.mongoURI != "":
		c.Logger.Info("using mongodb layout store", "database", flags.mongoDB)
		return store.NewMongoStore(ctx, flags.mongoURI, flags.mongoDB, store.DefaultMongoCollection)
	case flags.storeDir != "":
		c.Logger.Info("using file layout store", "dir", flags.storeDir)
		return store.NewFileStore(flags.storeDir)
	default:
		c.Logger.Warn("using in-memory layout store; stored layouts are lost on exit")
		return store.NewMemoryStore(), nil
	}
}
