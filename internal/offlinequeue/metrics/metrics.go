package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the device-side offline queue. A nil *Metrics is a no-op.
type Metrics struct {
	Depth       prometheus.Gauge
	SyncResults *prometheus.CounterVec
	Passes      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Depth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "presence_offline_queue_depth",
			Help: "Items currently held in the offline queue, exhausted ones included",
		}),
		SyncResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_offline_sync_results_total",
			Help: "Offline sync attempts by result",
		}, []string{"result"}),
		Passes: factory.NewCounter(prometheus.CounterOpts{
			Name: "presence_offline_queue_passes_total",
			Help: "Queue processing passes that ran",
		}),
	}
}

func (m *Metrics) SetDepth(n int) {
	if m == nil {
		return
	}
	m.Depth.Set(float64(n))
}

func (m *Metrics) ObserveSync(result string) {
	if m == nil {
		return
	}
	m.SyncResults.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementPasses() {
	if m == nil {
		return
	}
	m.Passes.Inc()
}
