package observability

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "stackflow"

// Pipeline stage and outcome label values.
const (
	stageParse  = "parse"
	stageLayout = "layout"
	stageExport = "export"

	resultOK    = "ok"
	resultError = "error"
)

// Counters is a hook implementation backed by Prometheus collectors in a
// private registry. It implements [PipelineHooks], [CacheHooks] and
// [RequestHooks] and is safe for concurrent use.
type Counters struct {
	NoopPipelineHooks

	reg *prometheus.Registry

	stages         *prometheus.CounterVec   // stage, result
	layoutDuration prometheus.Histogram     // seconds spent in the engine
	cacheLookups   *prometheus.CounterVec   // key, result
	cacheBytes     prometheus.Counter       // bytes written to the cache
	requests       *prometheus.CounterVec   // method, route, class
	requestLatency *prometheus.HistogramVec // route
}

// NewCounters returns zeroed counters registered with a fresh registry
// that also carries the Go runtime collector.
func NewCounters() *Counters {
	c := &Counters{
		reg: prometheus.NewRegistry(),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stages_total",
			Help:      "Completed pipeline stages by stage and result.",
		}, []string{"stage", "result"}),
		layoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent computing layouts, excluding cache hits.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key type and result.",
		}, []string{"key", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests by method, route and status class.",
		}, []string{"method", "route", "class"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	c.reg.MustRegister(
		collectors.NewGoCollector(),
		c.stages, c.layoutDuration, c.cacheLookups, c.cacheBytes,
		c.requests, c.requestLatency,
	)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Counters) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Counters) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Snapshot is a point-in-time summary of [Counters].
type Snapshot struct {
	Parses       int64 `json:"parses"`
	ParseErrors  int64 `json:"parse_errors"`
	Layouts      int64 `json:"layouts"`
	LayoutErrors int64 `json:"layout_errors"`
	LayoutMillis int64 `json:"layout_ms"`
	Exports      int64 `json:"exports"`
	ExportErrors int64 `json:"export_errors"`

	LayoutCacheHits   int64 `json:"layout_cache_hits"`
	LayoutCacheMisses int64 `json:"layout_cache_misses"`
	ExportCacheHits   int64 `json:"export_cache_hits"`
	ExportCacheMisses int64 `json:"export_cache_misses"`
	CacheBytesWritten int64 `json:"cache_bytes_written"`

	Requests     int64 `json:"requests"`
	ClientErrors int64 `json:"client_errors"`
	ServerErrors int64 `json:"server_errors"`
}

// Snapshot reads the current totals from the collectors.
func (c *Counters) Snapshot() Snapshot {
	stage := func(name string) (total, errs int64) {
		ok := counterValue(c.stages.WithLabelValues(name, resultOK))
		errs = counterValue(c.stages.WithLabelValues(name, resultError))
		return ok + errs, errs
	}
	lookup := func(key, result string) int64 {
		return counterValue(c.cacheLookups.WithLabelValues(key, result))
	}

	var s Snapshot
	s.Parses, s.ParseErrors = stage(stageParse)
	s.Layouts, s.LayoutErrors = stage(stageLayout)
	s.Exports, s.ExportErrors = stage(stageExport)

	var m dto.Metric
	if err := c.layoutDuration.Write(&m); err == nil {
		s.LayoutMillis = int64(math.Round(m.GetHistogram().GetSampleSum() * 1000))
	}

	s.LayoutCacheHits = lookup(KeyLayout, "hit")
	s.LayoutCacheMisses = lookup(KeyLayout, "miss")
	s.ExportCacheHits = lookup(KeyExport, "hit")
	s.ExportCacheMisses = lookup(KeyExport, "miss")
	s.CacheBytesWritten = counterValue(c.cacheBytes)

	s.Requests, s.ClientErrors, s.ServerErrors = c.requestTotals()
	return s
}

// requestTotals sums the request counter across its label sets.
func (c *Counters) requestTotals() (total, client, server int64) {
	families, err := c.reg.Gather()
	if err != nil {
		return 0, 0, 0
	}
	for _, mf := range families {
		if mf.GetName() != namespace+"_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			n := int64(m.GetCounter().GetValue())
			total += n
			for _, lp := range m.GetLabel() {
				if lp.GetName() != "class" {
					continue
				}
				switch lp.GetValue() {
				case "4xx":
					client += n
				case "5xx":
					server += n
				}
			}
		}
	}
	return total, client, server
}

func counterValue(c prometheus.Counter) int64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return int64(m.GetCounter().GetValue())
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}

func (c *Counters) OnParseComplete(_ context.Context, _, _ int, _ time.Duration, err error) {
	c.stages.WithLabelValues(stageParse, result(err)).Inc()
}

// OnLayoutComplete counts computed layouts; cache hits are not reported here.
func (c *Counters) OnLayoutComplete(_ context.Context, _, _ int, d time.Duration, err error) {
	c.stages.WithLabelValues(stageLayout, result(err)).Inc()
	c.layoutDuration.Observe(d.Seconds())
}

func (c *Counters) OnExportComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	c.stages.WithLabelValues(stageExport, result(err)).Inc()
}

func (c *Counters) OnCacheHit(_ context.Context, keyType string) {
	if keyType == KeyLayout || keyType == KeyExport {
		c.cacheLookups.WithLabelValues(keyType, "hit").Inc()
	}
}

func (c *Counters) OnCacheMiss(_ context.Context, keyType string) {
	if keyType == KeyLayout || keyType == KeyExport {
		c.cacheLookups.WithLabelValues(keyType, "miss").Inc()
	}
}

func (c *Counters) OnCacheSet(_ context.Context, _ string, size int) {
	c.cacheBytes.Add(float64(size))
}

func (c *Counters) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	class := strconv.Itoa(status/100) + "xx"
	c.requests.WithLabelValues(method, route, class).Inc()
	c.requestLatency.WithLabelValues(route).Observe(d.Seconds())
}
