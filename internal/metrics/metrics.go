package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront_auth"

// Metrics holds the collectors recorded by the gateway, the flows and the session manager.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
	FlowOutcomesTotal      *prometheus.CounterVec
	LogoutsTotal           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GatewayRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Requests sent to the remote auth service, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),

		GatewayRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of requests to the remote auth service.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),

		FlowOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_outcomes_total",
			Help:      "Flow submissions, by flow state and outcome.",
		}, []string{"state", "outcome"}),

		LogoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Session terminations, by kind and remote result.",
		}, []string{"kind", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.GatewayRequestsTotal,
			m.GatewayRequestDuration,
			m.FlowOutcomesTotal,
			m.LogoutsTotal,
		)
	}
	return m
}

func (m *Metrics) ObserveRequest(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.GatewayRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) FlowOutcome(state, outcome string) {
	if m == nil {
		return
	}
	m.FlowOutcomesTotal.WithLabelValues(state, outcome).Inc()
}

func (m *Metrics) Logout(kind, result string) {
	if m == nil {
		return
	}
	m.LogoutsTotal.WithLabelValues(kind, result).Inc()
}
