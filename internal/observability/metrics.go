package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// wait-time ETL pipeline.
type Metrics struct {
	SnapshotsConsumed    prometheus.Counter
	ObservationsConsumed prometheus.Counter
	RecordsProduced      prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Per-record failure counters, labeled by kind:
	// resolution, parse, schema_drift.
	RecordFailures *prometheus.CounterVec

	// Missing-data policy metrics.
	RecordsImputed prometheus.Counter
	RecordsDropped prometheus.Counter

	// Reference table sizes, set once at startup.
	HospitalsLoaded        prometheus.Gauge
	TriageConditionsLoaded prometheus.Gauge

	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SnapshotsConsumed,
		m.ObservationsConsumed,
		m.RecordsProduced,
		m.PipelineRunning,
		m.RecordFailures,
		m.RecordsImputed,
		m.RecordsDropped,
		m.HospitalsLoaded,
		m.TriageConditionsLoaded,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SnapshotsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage_etl",
			Name:      "snapshots_consumed_total",
			Help:      "Total snapshot messages read from the source topic.",
		}),
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage_etl",
			Name:      "observations_consumed_total",
			Help:      "Total per-hospital observations extracted from snapshots.",
		}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage_etl",
			Name:      "records_produced_total",
			Help:      "Total canonical records written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "triage_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RecordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage_etl",
			Name:      "record_failures_total",
			Help:      "Per-record failures by kind: resolution, parse, schema_drift.",
		}, []string{"kind"}),
		RecordsImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage_etl",
			Name:      "records_imputed_total",
			Help:      "Records whose missing wait was filled by the policy engine.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage_etl",
			Name:      "records_dropped_total",
			Help:      "Records removed by the drop missing-data strategy.",
		}),
		HospitalsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "triage_etl",
			Name:      "hospitals_loaded",
			Help:      "Hospitals in the loaded reference table.",
		}),
		TriageConditionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "triage_etl",
			Name:      "triage_conditions_loaded",
			Help:      "Conditions in the loaded triage reference table.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "triage_etl",
			Name:      "batch_size",
			Help:      "Snapshot messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "triage_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
