package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for board lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	boardsCreated    prometheus.Counter
	conflicts        *prometheus.CounterVec
	bonusDraws       *prometheus.CounterVec
	proofSubmissions *prometheus.CounterVec
}

// New registers collectors on a private registry so tests can build as many as they like.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		boardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boards_created_total",
			Help:      "Boards inserted by this process.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Uniqueness conflicts resolved by re-reading the stored record.",
		}, []string{"entity"}),
		bonusDraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bonus_draws_total",
			Help:      "Bonus draw requests by outcome.",
		}, []string{"outcome"}),
		proofSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proof_submissions_total",
			Help:      "Proof submissions by artifact kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(
		m.boardsCreated,
		m.conflicts,
		m.bonusDraws,
		m.proofSubmissions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) BoardCreated() {
	if m == nil {
		return
	}
	m.boardsCreated.Inc()
}

func (m *Metrics) ConflictResolved(entity string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(entity).Inc()
}

func (m *Metrics) BonusDraw(outcome string) {
	if m == nil {
		return
	}
	m.bonusDraws.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProofSubmitted(kind, outcome string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.proofSubmissions.WithLabelValues(kind, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
