package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnParseStart(ctx, 42)
	p.OnParseComplete(ctx, 5, 5, time.Millisecond, nil)
	p.OnLayoutStart(ctx, 5)
	p.OnLayoutComplete(ctx, 4, 0, time.Millisecond, nil)
	p.OnExportStart(ctx, []string{"json"})
	p.OnExportComplete(ctx, []string{"json"}, time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, KeyLayout)
	c.OnCacheMiss(ctx, KeyExport)
	c.OnCacheSet(ctx, KeyLayout, 1024)

	NoopRequestHooks{}.OnRequest(ctx, "POST", "/v1/layout", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Request().(NoopRequestHooks); !ok {
		t.Error("Request() should return NoopRequestHooks by default")
	}

	counters := NewCounters()
	SetPipelineHooks(counters)
	SetCacheHooks(counters)
	SetRequestHooks(counters)
	if Pipeline() != PipelineHooks(counters) || Cache() != CacheHooks(counters) || Request() != RequestHooks(counters) {
		t.Error("Set*Hooks should register the custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	custom := NewCounters()
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != PipelineHooks(custom) {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	c := NewCounters()
	boom := errors.New("boom")

	c.OnParseComplete(ctx, 5, 5, time.Millisecond, nil)
	c.OnParseComplete(ctx, 0, 0, time.Millisecond, boom)
	c.OnLayoutComplete(ctx, 4, 0, 3*time.Millisecond, nil)
	c.OnExportComplete(ctx, []string{"dot"}, time.Millisecond, boom)
	c.OnCacheHit(ctx, KeyLayout)
	c.OnCacheMiss(ctx, KeyLayout)
	c.OnCacheMiss(ctx, KeyExport)
	c.OnCacheHit(ctx, "unknown")
	c.OnCacheSet(ctx, KeyExport, 100)
	c.OnCacheSet(ctx, KeyLayout, 50)
	c.OnRequest(ctx, "POST", "/v1/layout", 200, time.Millisecond)
	c.OnRequest(ctx, "POST", "/v1/layout", 400, time.Millisecond)
	c.OnRequest(ctx, "GET", "/v1/layouts/{id}", 404, time.Millisecond)
	c.OnRequest(ctx, "POST", "/v1/layouts", 500, time.Millisecond)

	want := Snapshot{
		Parses: 2, ParseErrors: 1,
		Layouts: 1, LayoutMillis: 3,
		Exports: 1, ExportErrors: 1,
		LayoutCacheHits: 1, LayoutCacheMisses: 1, ExportCacheMisses: 1,
		CacheBytesWritten: 150,
		Requests:          4, ClientErrors: 2, ServerErrors: 1,
	}
	if got := c.Snapshot(); got != want {
		t.Errorf("Snapshot() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestCountersConcurrent(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.OnRequest(context.Background(), "GET", "/healthz", 200, 0)
			}
		}()
	}
	wg.Wait()

	if got := c.Snapshot().Requests; got != 800 {
		t.Errorf("Requests = %d, want 800", got)
	}
}

func TestCountersHandler(t *testing.T) {
	ctx := context.Background()
	c := NewCounters()
	c.OnLayoutComplete(ctx, 4, 0, 2*time.Millisecond, nil)
	c.OnCacheMiss(ctx, KeyLayout)
	c.OnRequest(ctx, "POST", "/v1/layout", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`stackflow_pipeline_stages_total{result="ok",stage="layout"} 1`,
		`stackflow_layout_duration_seconds_count 1`,
		`stackflow_cache_lookups_total{key="layout",result="miss"} 1`,
		`stackflow_http_requests_total{class="2xx",method="POST",route="/v1/layout"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
