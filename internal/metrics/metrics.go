package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Registry owns every storefront collector.
type Registry struct {
	reg *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	concurrentRequests prometheus.Gauge

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec

	criticalLoads    *prometheus.CounterVec
	criticalDuration prometheus.Histogram
	deferredFailures *prometheus.CounterVec

	renderErrors prometheus.Counter
	responses    *prometheus.CounterVec

	cspReports *prometheus.CounterVec
}

// New creates a Registry with Go runtime and process collectors attached.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time until the handler returned.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		concurrentRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_concurrent_requests",
			Help:      "Requests currently being served.",
		}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend queries by backend and outcome.",
		}, []string{"backend", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend query latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"backend"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by backend and result.",
		}, []string{"backend", "result"}),
		criticalLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critical_loads_total",
			Help:      "Critical page loads by outcome.",
		}, []string{"outcome"}),
		criticalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "critical_load_duration_seconds",
			Help:      "Time to load all critical data for a page.",
			Buckets:   prometheus.DefBuckets,
		}),
		deferredFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_failures_total",
			Help:      "Deferred queries that resolved to absent.",
		}, []string{"key"}),
		renderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Errors reported while rendering a page.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_responses_total",
			Help:      "Page responses by client kind and status.",
		}, []string{"client", "status"}),
		cspReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csp_reports_total",
			Help:      "CSP violation reports received by directive.",
		}, []string{"directive"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpDuration, r.concurrentRequests,
		r.backendRequests, r.backendDuration, r.cacheLookups,
		r.criticalLoads, r.criticalDuration, r.deferredFailures,
		r.renderErrors, r.responses, r.cspReports,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Middleware records request count, latency and concurrency.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r.concurrentRequests.Inc()
		defer r.concurrentRequests.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveRequest implements backend.Observer.
func (r *Registry) ObserveRequest(backend, outcome string, elapsed time.Duration) {
	r.backendRequests.WithLabelValues(backend, outcome).Inc()
	r.backendDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveCache implements backend.Observer.
func (r *Registry) ObserveCache(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(backend, result).Inc()
}

// ObserveCritical implements loader.Observer.
func (r *Registry) ObserveCritical(outcome string, elapsed time.Duration) {
	r.criticalLoads.WithLabelValues(outcome).Inc()
	r.criticalDuration.Observe(elapsed.Seconds())
}

// ObserveDeferredFailure implements loader.Observer.
func (r *Registry) ObserveDeferredFailure(key string) {
	r.deferredFailures.WithLabelValues(key).Inc()
}

// ObserveRenderError implements respond.Observer.
func (r *Registry) ObserveRenderError() {
	r.renderErrors.Inc()
}

// ObserveResponse implements respond.Observer.
func (r *Registry) ObserveResponse(bot bool, status int) {
	client := "human"
	if bot {
		client = "bot"
	}
	r.responses.WithLabelValues(client, strconv.Itoa(status)).Inc()
}

// ObserveCSPReport counts one stored violation report.
func (r *Registry) ObserveCSPReport(directive string) {
	if directive == "" {
		directive = "unknown"
	}
	r.cspReports.WithLabelValues(directive).Inc()
}
