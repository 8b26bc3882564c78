package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heriman22/blog-main/internal/version"
)

type ServerMetrics struct {
	reg                    *prometheus.Registry
	handler                http.Handler
	inflight               prometheus.Gauge
	reqTotal               *prometheus.CounterVec
	reqDur                 *prometheus.HistogramVec
	respBytes              *prometheus.HistogramVec
	httpPanicTotal         prometheus.Counter
	buildInfo              *prometheus.GaugeVec
	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter

	errorsTotal *prometheus.CounterVec

	profilingActive prometheus.Gauge

	// content metrics
	cacheTotal          *prometheus.CounterVec
	contentQueryDur     prometheus.Histogram
	contentQueryErrors  prometheus.Counter
	revalidationsTotal  *prometheus.CounterVec
	pathsInvalidated    prometheus.Counter
	renderDegradedTotal *prometheus.CounterVec
	imageURLFailures    *prometheus.CounterVec
	templateReloads     *prometheus.CounterVec
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total number of times rate limiter capacity reached",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_cache_lookups_total",
			Help: "Cache lookups by cache (content, page) and result (hit, miss)",
		}, []string{"cache", "result"}),
		contentQueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blog_content_query_duration_seconds",
			Help:    "Latency of content API queries that missed the cache",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		contentQueryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_content_query_errors_total",
			Help: "Content API queries that failed",
		}),
		revalidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_revalidations_total",
			Help: "Revalidation webhook calls by outcome",
		}, []string{"outcome"}),
		pathsInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_revalidated_paths_total",
			Help: "Page paths invalidated by revalidation webhooks",
		}),
		renderDegradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_render_degraded_total",
			Help: "Rich text nodes dropped or rendered neutrally, by kind",
		}, []string{"kind"}),
		imageURLFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_image_url_failures_total",
			Help: "Image URLs that could not be built, by placement",
		}, []string{"placement"}),
		templateReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_template_reloads_total",
			Help: "Template reloads by result (ok, error)",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.errorsTotal,
		m.profilingActive,
		m.cacheTotal,
		m.contentQueryDur,
		m.contentQueryErrors,
		m.revalidationsTotal,
		m.pathsInvalidated,
		m.renderDegradedTotal,
		m.imageURLFailures,
		m.templateReloads,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	m.buildInfo.With(prometheus.Labels{
		"app":        app,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  strconv.FormatBool(vi.Modified),
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacityTotal.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// CacheResult counts a lookup against the named cache.
func (m *ServerMetrics) CacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(cache, result).Inc()
}

func (m *ServerMetrics) ObserveContentQuery(d time.Duration, err error) {
	m.contentQueryDur.Observe(d.Seconds())
	if err != nil {
		m.contentQueryErrors.Inc()
	}
}

func (m *ServerMetrics) Revalidation(outcome string, paths int) {
	m.revalidationsTotal.WithLabelValues(outcome).Inc()
	if paths > 0 {
		m.pathsInvalidated.Add(float64(paths))
	}
}

func (m *ServerMetrics) RenderDegraded(kind string) {
	m.renderDegradedTotal.WithLabelValues(kind).Inc()
}

func (m *ServerMetrics) ImageURLFailure(placement string) {
	m.imageURLFailures.WithLabelValues(placement).Inc()
}

func (m *ServerMetrics) TemplateReload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.templateReloads.WithLabelValues(result).Inc()
}
