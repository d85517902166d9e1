package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics methods are safe to call on a nil receiver.
type Metrics struct {
	TokenRefreshesTotal prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	ActiveSessions      prometheus.Gauge

	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamLatency       *prometheus.HistogramVec
	MonitorCyclesTotal    *prometheus.CounterVec
	FreshOffersTotal      *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsTotal     *prometheus.CounterVec
	Registry              *prometheus.Registry
}

func NewMetrics(p *prometheus.Registry) *Metrics {
	m := &Metrics{
		TokenRefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_token_refreshes_total",
			Help: "Bearer tokens fetched from the token endpoint",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_search_cache_hits_total",
			Help: "Generic searches answered from cache",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripwatch_monitor_sessions_active",
			Help: "Monitor sessions currently running",
		}),
		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripwatch_upstream_requests_total",
			Help: "Calls made to the travel API by endpoint and status",
		}, []string{"endpoint", "status"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripwatch_upstream_latency_seconds",
			Help:    "Latency of travel API calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		MonitorCyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripwatch_monitor_cycles_total",
			Help: "Polls performed by monitor sessions",
		}, []string{"kind"}),
		FreshOffersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripwatch_fresh_offers_total",
			Help: "Offers delivered to monitor callbacks",
		}, []string{"kind"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		Registry: p,
	}

	p.MustRegister(
		m.TokenRefreshesTotal,
		m.CacheHitsTotal,
		m.ActiveSessions,
		m.UpstreamRequestsTotal,
		m.UpstreamLatency,
		m.MonitorCyclesTotal,
		m.FreshOffersTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
	)

	return m
}

func (m *Metrics) IncTokenRefreshes() {
	if m == nil {
		return
	}

	m.TokenRefreshesTotal.Inc()
}

func (m *Metrics) IncCacheHits() {
	if m == nil {
		return
	}

	m.CacheHitsTotal.Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}

	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionFinished() {
	if m == nil {
		return
	}

	m.ActiveSessions.Dec()
}

func (m *Metrics) ObserveUpstream(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}

	m.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) ObserveMonitorCycle(kind string, fresh int) {
	if m == nil {
		return
	}

	m.MonitorCyclesTotal.WithLabelValues(kind).Inc()
	m.FreshOffersTotal.WithLabelValues(kind).Add(float64(fresh))
}

func (m *Metrics) ObserveHTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}

	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}) //nolint:exhaustruct
}
