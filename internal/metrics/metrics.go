// Package metrics exposes the gateway's operational counters on a
// Prometheus registry: live sessions, auth-pipeline outcomes per
// method, TLS handshake and mTLS identity outcomes, and timer-queue
// saturation events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector this service registers.
type Metrics struct {
	registry *prometheus.Registry

	liveSessions prometheus.GaugeFunc
	authOutcome  *prometheus.CounterVec
	tlsHandshake *prometheus.CounterVec
	timerFull    prometheus.Counter
}

// New builds and registers the collector set. liveCount is sampled on
// every scrape.
func New(liveCount func() float64) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.liveSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bmcweb",
		Name:      "sessions_live",
		Help:      "Number of live authenticated sessions.",
	}, liveCount)

	m.authOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmcweb",
		Name:      "auth_outcomes_total",
		Help:      "Authentication pipeline outcomes, by method and result.",
	}, []string{"method", "outcome"})

	m.tlsHandshake = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmcweb",
		Name:      "tls_handshakes_total",
		Help:      "TLS handshake and mutual-TLS identity extraction outcomes.",
	}, []string{"outcome"})

	m.timerFull = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bmcweb",
		Name:      "timer_queue_saturated_total",
		Help:      "Deadline-queue add failures; each one closed a connection.",
	})

	m.registry.MustRegister(m.liveSessions, m.authOutcome, m.tlsHandshake, m.timerFull)
	return m
}

// AuthOutcome records one pipeline result, e.g. ("cookie", "success").
func (m *Metrics) AuthOutcome(method, outcome string) {
	m.authOutcome.WithLabelValues(method, outcome).Inc()
}

// TLSOutcome records one handshake-level event, e.g. "mtls_identity".
func (m *Metrics) TLSOutcome(outcome string) {
	m.tlsHandshake.WithLabelValues(outcome).Inc()
}

// TimerSaturated records a deadline-queue add failure.
func (m *Metrics) TimerSaturated() {
	m.timerFull.Inc()
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
