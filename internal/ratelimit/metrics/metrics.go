package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the check-in abuse gate. A nil *Metrics is a no-op.
type Metrics struct {
	Checks           *prometheus.CounterVec
	FailuresRecorded prometheus.Counter
	CooldownsStarted prometheus.Counter
}

// New registers the gate metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_ratelimit_checks_total",
			Help: "Check-in gate decisions by method and result",
		}, []string{"method", "result"}),
		FailuresRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "presence_ratelimit_failures_recorded_total",
			Help: "Failed verifications recorded against a subject",
		}),
		CooldownsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "presence_ratelimit_cooldowns_started_total",
			Help: "Failure streaks that reached the cooldown threshold",
		}),
	}
}

func (m *Metrics) ObserveCheck(method, result string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(method, result).Inc()
}

func (m *Metrics) IncrementFailures() {
	if m == nil {
		return
	}
	m.FailuresRecorded.Inc()
}

func (m *Metrics) IncrementCooldowns() {
	if m == nil {
		return
	}
	m.CooldownsStarted.Inc()
}
