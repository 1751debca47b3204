package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and histograms exported on /metrics
type Metrics struct {
	APIRequests *prometheus.CounterVec
	APIDuration *prometheus.HistogramVec
	Invocations *prometheus.CounterVec
	Validations *prometheus.CounterVec
}

// New registers the adapter metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitly_api_requests_total",
			Help: "Outbound Bitly API requests by endpoint and status (0 for transport failures).",
		}, []string{"endpoint", "status"}),
		APIDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bitly_api_request_duration_seconds",
			Help:    "Outbound Bitly API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitly_invocations_total",
			Help: "Tool invocations by action and outcome.",
		}, []string{"action", "outcome"}),
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitly_credential_validations_total",
			Help: "Credential validations by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveRequest records one outbound call. A nil receiver is a no-op.
func (m *Metrics) ObserveRequest(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.APIDuration.WithLabelValues(endpoint).Observe(seconds)
}

// Invocation records the outcome of one tool invocation
func (m *Metrics) Invocation(action, outcome string) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(action, outcome).Inc()
}

// Validation records the outcome of one credential validation
func (m *Metrics) Validation(outcome string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(outcome).Inc()
}
