package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gmvs"

// Metrics holds the Prometheus counters, histograms, and gauges for analysis runs.
type Metrics struct {
	RunsTotal   *prometheus.CounterVec // labels: outcome={no_data,buffering,stable,fracture,error}
	RunDuration prometheus.Histogram
	WatchActive prometheus.Gauge

	// Per-run analysis results, overwritten on every completed run.
	AlignedRows    prometheus.Gauge
	PeakStress     prometheus.Gauge
	Violations     prometheus.Gauge
	MissingSamples prometheus.Gauge

	// Input quality.
	MissingColumns *prometheus.CounterVec // labels: source, column
	CoercedCells   *prometheus.CounterVec // labels: source

	PublishErrors prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-align-score-report cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WatchActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_active",
			Help:      "1 while the watch loop is running, 0 otherwise.",
		}),
		AlignedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aligned_rows",
			Help:      "Aligned samples in the last completed run.",
		}),
		PeakStress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_stress",
			Help:      "Peak stress in the last completed run.",
		}),
		Violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "violations",
			Help:      "Samples above the snap threshold in the last completed run.",
		}),
		MissingSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_samples",
			Help:      "Aligned samples with a missing space magnitude in the last completed run.",
		}),
		MissingColumns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_columns_total",
			Help:      "Loaded artifacts lacking a canonical column, by source and column.",
		}, []string{"source", "column"}),
		CoercedCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coerced_cells_total",
			Help:      "Non-numeric cells read as missing, by source.",
		}, []string{"source"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Verdicts that could not be published.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.WatchActive,
		m.AlignedRows,
		m.PeakStress,
		m.Violations,
		m.MissingSamples,
		m.MissingColumns,
		m.CoercedCells,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
