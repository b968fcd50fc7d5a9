package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for check-in attempts. A nil *Metrics is a no-op.
type Metrics struct {
	Outcomes       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	BreakerChanges *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_checkin_outcomes_total",
			Help: "Check-in attempts by method, terminal state and reason",
		}, []string{"method", "state", "reason"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "presence_checkin_duration_seconds",
			Help:    "Time to reach a terminal check-in state",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		BreakerChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_checkin_ledger_breaker_transitions_total",
			Help: "Ledger circuit breaker transitions",
		}, []string{"to"}),
	}
}

func (m *Metrics) ObserveOutcome(method, state, reason string, seconds float64) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(method, state, reason).Inc()
	m.Duration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) ObserveBreaker(to string) {
	if m == nil {
		return
	}
	m.BreakerChanges.WithLabelValues(to).Inc()
}
