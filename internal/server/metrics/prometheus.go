// Package metrics provides Prometheus metrics for the identity service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	usersCreated     prometheus.Counter
	usersRemoved     prometheus.Counter
	changesAppended  *prometheus.CounterVec
	linksCreated     prometheus.Counter
	changesDelivered *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry, alongside the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		usersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "corund_users_created_total",
			Help: "Total number of registered users",
		}),
		usersRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "corund_users_removed_total",
			Help: "Total number of archived users",
		}),
		changesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corund_changes_appended_total",
			Help: "Total number of change records written",
		}, []string{"action"}),
		linksCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "corund_delivery_links_created_total",
			Help: "Total number of pending-delivery links created by fan-out",
		}),
		changesDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corund_changes_delivered_total",
			Help: "Total number of change records returned to domains",
		}, []string{"domain", "ack"}),
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "corund_sessions_started_total",
			Help: "Total number of successful logins",
		}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corund_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corund_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) UserCreated() {
	if m == nil {
		return
	}
	m.usersCreated.Inc()
}

func (m *Metrics) UserRemoved() {
	if m == nil {
		return
	}
	m.usersRemoved.Inc()
}

// ChangeAppended records one change record and the links it fanned out to.
func (m *Metrics) ChangeAppended(action string, links int64) {
	if m == nil {
		return
	}
	m.changesAppended.WithLabelValues(action).Inc()
	m.linksCreated.Add(float64(links))
}

func (m *Metrics) ChangesDelivered(domain string, ack bool, n int) {
	if m == nil {
		return
	}
	m.changesDelivered.WithLabelValues(domain, strconv.FormatBool(ack)).Add(float64(n))
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
