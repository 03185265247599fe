package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the engine's Prometheus collectors
type Metrics struct {
	Computations      prometheus.Counter
	ComputeDuration   prometheus.Histogram
	Reloads           *prometheus.CounterVec
	DatasetAccounts   prometheus.Gauge
	DateParseFailures prometheus.Counter
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Computations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "account_risk",
			Subsystem: "engine",
			Name:      "computations_total",
			Help:      "Number of full detection and report passes",
		}),
		ComputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "account_risk",
			Subsystem: "engine",
			Name:      "compute_duration_seconds",
			Help:      "Duration of a detection and report pass",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}),
		Reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account_risk",
			Subsystem: "engine",
			Name:      "reloads_total",
			Help:      "Dataset reloads by outcome",
		}, []string{"status"}),
		DatasetAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "account_risk",
			Subsystem: "dataset",
			Name:      "accounts",
			Help:      "Accounts in the currently loaded dataset",
		}),
		DateParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "account_risk",
			Subsystem: "loader",
			Name:      "date_parse_failures_total",
			Help:      "Date values discarded because they could not be normalized",
		}),
	}
}
