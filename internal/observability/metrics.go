package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sea_ice_obs"

// Metrics holds the Prometheus counters, histograms, and gauges for imports
// and exports.
type Metrics struct {
	// labels: format, outcome={accepted,rejected,failed}
	Imports      *prometheus.CounterVec
	RowsAccepted prometheus.Counter
	RowsRejected prometheus.Counter
	Persisted    prometheus.Counter

	Exports        *prometheus.CounterVec   // labels: format
	DecodeDuration *prometheus.HistogramVec // labels: format

	PublishErrors prometheus.Counter
	StoreUp       prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()
	prometheus.MustRegister(
		m.Imports,
		m.RowsAccepted,
		m.RowsRejected,
		m.Persisted,
		m.Exports,
		m.DecodeDuration,
		m.PublishErrors,
		m.StoreUp,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics. One-shot CLI runs
// use it too since nothing scrapes them.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Import requests by detected format and outcome.",
		}, []string{"format", "outcome"}),
		RowsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_accepted_total",
			Help:      "Rows that passed validation during decode.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Rows rejected during decode.",
		}),
		Persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Observations written to the record store.",
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by output format.",
		}, []string{"format"}),
		DecodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding an uploaded file.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"format"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed attempts to announce persisted observations.",
		}),
		StoreUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_up",
			Help:      "1 when the last store health check succeeded, 0 otherwise.",
		}),
	}
}
