package retrieval

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records retrieval outcomes and latency.
type Metrics struct {
	retrievals *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the retrieval collectors on reg. A nil reg leaves them
// unregistered, which keeps tests independent of the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		retrievals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otpbot_retrievals_total",
			Help: "Total number of code retrievals by outcome and error kind",
		}, []string{"outcome", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "otpbot_retrieval_duration_seconds",
			Help:    "End-to-end retrieval latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(string(res.Outcome), string(res.Kind)).Inc()
	m.duration.WithLabelValues(string(res.Outcome)).Observe(elapsed.Seconds())
}
