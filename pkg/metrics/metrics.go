package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded on surfview_renders_total
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // Sanitizer refused the input; no session was started
	OutcomeFailed   = "failed"
)

// Metrics holds all Prometheus collectors for the render pipeline
// A nil *Metrics is valid and records nothing
type Metrics struct {
	RendersTotal    *prometheus.CounterVec
	RenderDuration  *prometheus.HistogramVec
	BlockedRequests *prometheus.CounterVec
	CookiesRetained prometheus.Histogram
	SessionsActive  prometheus.Gauge
	OpenExternal    *prometheus.CounterVec

	// HTTP boundary
	HTTPRequests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg, which must also be a Gatherer for Handler to serve them
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surfview_renders_total",
				Help: "Total number of render requests by outcome and error category",
			},
			[]string{"outcome", "category"},
		),
		RenderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surfview_render_duration_seconds",
				Help:    "Wall time of a render request, launch to teardown",
				Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60},
			},
			[]string{"outcome"},
		),
		BlockedRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surfview_blocked_requests_total",
				Help: "Sub-resource requests aborted by the resource policy",
			},
			[]string{"category"},
		),
		CookiesRetained: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "surfview_cookies_retained",
				Help:    "Cookies replayed into a capture after scoping",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "surfview_sessions_active",
				Help: "Browser sessions currently alive",
			},
		),
		OpenExternal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surfview_open_external_total",
				Help: "openExternal calls by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surfview_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRender records one finished render request
func (m *Metrics) ObserveRender(outcome, category string, d time.Duration) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(outcome, category).Inc()
	m.RenderDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveBlocked records one request aborted by a resource policy
func (m *Metrics) ObserveBlocked(category string) {
	if m == nil {
		return
	}
	m.BlockedRequests.WithLabelValues(category).Inc()
}

// ObserveCookies records how many cookies survived scoping
func (m *Metrics) ObserveCookies(n int) {
	if m == nil {
		return
	}
	m.CookiesRetained.Observe(float64(n))
}

// SessionStarted increments the live session gauge
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionEnded decrements the live session gauge
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// ObserveOpenExternal records one openExternal call
func (m *Metrics) ObserveOpenExternal(outcome string) {
	if m == nil {
		return
	}
	m.OpenExternal.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one request served by the HTTP boundary
func (m *Metrics) ObserveHTTP(method, path, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}
