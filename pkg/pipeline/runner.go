package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackflow/pkg/cache"
	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
	"github.com/matzehuels/stackflow/pkg/layout"
	"github.com/matzehuels/stackflow/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
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
// If cache is nil, a NullCache is used (caching disabled).
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

// Execute runs the complete parse → layout → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Parse
	parseStart := time.Now()
	observability.Pipeline().OnParseStart(ctx, len(opts.Source))
	g, err := Parse(opts)
	if err != nil {
		observability.Pipeline().OnParseComplete(ctx, 0, 0, time.Since(parseStart), err)
		return nil, err
	}
	result.Graph = g
	result.Stats.ParseTime = time.Since(parseStart)
	observability.Pipeline().OnParseComplete(ctx, g.NodeCount(), g.EdgeCount(), result.Stats.ParseTime, nil)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.GraphHash = GraphHash(g)

	r.Logger.Info("parsed flowchart",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"direction", g.Direction,
		"duration", result.Stats.ParseTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	l, layoutHit, err := r.GenerateLayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.RankCount = l.MaxRank() + 1
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"ranks", result.Stats.RankCount,
		"crossings", l.Stats.CrossingsAfter,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Export
	exportStart := time.Now()
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported layout",
		"formats", opts.Formats,
		"cached", exportHit,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// GraphHash returns the content hash of g's JSON form.
func GraphHash(g *flowchart.Graph) string {
	data, err := g.MarshalJSON()
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// GenerateLayoutWithCacheInfo generates a layout with caching and returns cache hit info.
func (r *Runner) GenerateLayoutWithCacheInfo(ctx context.Context, g *flowchart.Graph, opts Options) (*layout.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}
	if g == nil {
		return nil, false, apperr.New(apperr.ErrCodeInvalidGraph, "graph is nil")
	}

	cacheKey := r.Keyer.LayoutKey(GraphHash(g), opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := decodeLayout(data); err == nil {
				observability.Cache().OnCacheHit(ctx, observability.KeyLayout)
				return cached, true, nil
			}
			r.Logger.Debug("discarding unreadable cache entry", "key", cacheKey)
		} else if err != nil {
			r.Logger.Warn("cache read failed", "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, observability.KeyLayout)
	}

	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, g.NodeCount())
	l, err := GenerateLayout(g, opts)
	if err != nil {
		observability.Pipeline().OnLayoutComplete(ctx, 0, 0, time.Since(start), err)
		return nil, false, err
	}
	observability.Pipeline().OnLayoutComplete(ctx, l.MaxRank()+1, l.Stats.CrossingsAfter, time.Since(start), nil)

	if data, err := encodeLayout(l); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, observability.KeyLayout, len(data))
		}
	}
	return l, false, nil
}

// GenerateLayout is a convenience wrapper that calls GenerateLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) GenerateLayout(ctx context.Context, g *flowchart.Graph, opts Options) (*layout.Layout, error) {
	l, _, err := r.GenerateLayoutWithCacheInfo(ctx, g, opts)
	return l, err
}

// ExportWithCacheInfo exports a layout with caching and returns whether
// every format came from the cache.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, l *layout.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}

	layoutData, err := encodeLayout(l)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.ErrCodeInternal, err, "serialize layout for cache key")
	}
	layoutHash := cache.Hash(layoutData)

	start := time.Now()
	observability.Pipeline().OnExportStart(ctx, opts.Formats)

	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true
	for _, format := range opts.Formats {
		key := r.Keyer.ExportKey(layoutHash, opts.ExportKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, observability.KeyExport)
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, observability.KeyExport)
		}
		allCached = false

		data, err := ExportFormat(ctx, l, format, opts)
		if err != nil {
			observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), err)
			return nil, false, err
		}
		artifacts[format] = data
		if err := r.Cache.Set(ctx, key, data, cache.TTLExport); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, observability.KeyExport, len(data))
		}
	}
	observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), nil)
	return artifacts, allCached, nil
}

// Export is a convenience wrapper that calls ExportWithCacheInfo and discards the cache hit info.
func (r *Runner) Export(ctx context.Context, l *layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.ExportWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
