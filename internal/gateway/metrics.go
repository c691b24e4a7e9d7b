// ABOUTME: Prometheus collectors for webhook calls
// ABOUTME: Counts calls by operation and outcome and observes their latency

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes recorded in the outcome label.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
	OutcomeStatus    = "status_error"
)

// Metrics holds the collectors for gateway calls.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the gateway collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simplevista_gateway_calls_total",
				Help: "Total number of webhook calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simplevista_gateway_call_duration_seconds",
				Help:    "Duration of webhook calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) observe(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(operation, outcome).Inc()
	m.Duration.WithLabelValues(operation).Observe(seconds)
}
