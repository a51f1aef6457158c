// Package observability provides hooks for metrics, tracing, and logging.
//
// Consumers register hooks at startup to receive events about pipeline
// stages, cache lookups and served HTTP requests. Every hook defaults to a
// no-op, so libraries can emit events unconditionally. [Counters] backs
// every hook with Prometheus collectors.
//
// # Usage
//
// Register hooks at application startup:
//
//	counters := observability.NewCounters()
//	observability.SetPipelineHooks(counters)
//	observability.SetCacheHooks(counters)
//	observability.SetRequestHooks(counters)
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLayoutStart(ctx, g.NodeCount())
//	// ... lay out ...
//	observability.Pipeline().OnLayoutComplete(ctx, ranks, crossings, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Cache key types passed to [CacheHooks].
const (
	KeyLayout = "layout"
	KeyExport = "export"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the parse → layout → export pipeline.
type PipelineHooks interface {
	// Parse events
	OnParseStart(ctx context.Context, sourceBytes int)
	OnParseComplete(ctx context.Context, nodeCount, edgeCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, nodeCount int)
	OnLayoutComplete(ctx context.Context, ranks, crossings int, duration time.Duration, err error)

	// Export events
	OnExportStart(ctx context.Context, formats []string)
	OnExportComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Request Hooks
// =============================================================================

// RequestHooks receives events from the HTTP server.
type RequestHooks interface {
	// OnRequest records a served request. Route is the matched pattern,
	// such as "/v1/layouts/{id}".
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseStart(context.Context, int)                                {}
func (NoopPipelineHooks) OnParseComplete(context.Context, int, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnExportStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnExportComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopRequestHooks is a no-op implementation of RequestHooks.
type NoopRequestHooks struct{}

func (NoopRequestHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	requestHooks  RequestHooks  = NoopRequestHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetRequestHooks registers custom request hooks.
func SetRequestHooks(h RequestHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		requestHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Request returns the registered request hooks.
func Request() RequestHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return requestHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	requestHooks = NoopRequestHooks{}
}
