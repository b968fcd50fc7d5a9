package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for ledger writes. A nil *Metrics is a no-op.
type Metrics struct {
	Appends        *prometheus.CounterVec
	VerifyFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Appends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_ledger_appends_total",
			Help: "Ledger append attempts by payload kind and result",
		}, []string{"kind", "result"}),
		VerifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "presence_ledger_verify_failures_total",
			Help: "Chain verifications that found a broken link",
		}),
	}
}

func (m *Metrics) ObserveAppend(kind, result string) {
	if m == nil {
		return
	}
	m.Appends.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncrementVerifyFailures() {
	if m == nil {
		return
	}
	m.VerifyFailures.Inc()
}
