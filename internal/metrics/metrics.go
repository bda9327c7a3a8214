package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	quotationsCreated *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	mailsSent         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotedesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quotedesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		quotationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotedesk",
			Name:      "quotations_created_total",
			Help:      "Quotations created, by initial status.",
		}, []string{"status"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotedesk",
			Name:      "quotation_status_transitions_total",
			Help:      "Quotation status transitions.",
		}, []string{"from", "to"}),
		mailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotedesk",
			Name:      "quotation_mails_total",
			Help:      "Quotation mails by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.quotationsCreated, m.statusTransitions, m.mailsSent,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) QuotationCreated(status string) {
	m.quotationsCreated.WithLabelValues(status).Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) MailSent(ok bool) {
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.mailsSent.WithLabelValues(outcome).Inc()
}

// Counters exposed for assertions in tests.
func (m *Metrics) QuotationsCreatedCounter(status string) prometheus.Counter {
	return m.quotationsCreated.WithLabelValues(status)
}

func (m *Metrics) StatusTransitionCounter(from, to string) prometheus.Counter {
	return m.statusTransitions.WithLabelValues(from, to)
}

func (m *Metrics) HTTPRequestsCounter(route, method string, code int) prometheus.Counter {
	return m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code))
}
